package output

import (
	"context"
	"reflect"
	"sort"

	"github.com/salmonumbrella/pms-cli/internal/table"
)

// ApplyAgentOptions applies --result-limit/--result-sort-by/--result-desc
// to output data when possible. Slices are sorted and truncated on a copy;
// structs with a Results field get the same treatment on that field; a
// Table is sorted by the header named in --result-sort-by.
func ApplyAgentOptions(ctx context.Context, data interface{}) interface{} {
	if data == nil {
		return data
	}

	limit := LimitFromContext(ctx)
	sortBy, desc := SortFromContext(ctx)
	if limit == 0 && sortBy == "" {
		return data
	}

	if t, ok := data.(Table); ok {
		return t.apply(limit, sortBy, desc)
	}

	v := reflect.ValueOf(data)
	if !v.IsValid() {
		return data
	}

	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return data
		}
		elem := v.Elem()
		switch elem.Kind() {
		case reflect.Struct:
			if updated := applyToResultsField(elem, limit, sortBy, desc); updated != nil {
				return data
			}
		case reflect.Slice, reflect.Array:
			if updated := applyToSlice(elem, limit, sortBy, desc); updated.IsValid() {
				return updated.Interface()
			}
		}
		return data
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if updated := applyToSlice(v, limit, sortBy, desc); updated.IsValid() {
			return updated.Interface()
		}
	case reflect.Struct:
		if updated := applyToResultsField(v, limit, sortBy, desc); updated != nil {
			return updated
		}
	}

	return data
}

// applyToResultsField applies sort/limit to a struct field named Results (if present).
func applyToResultsField(v reflect.Value, limit int, sortBy string, desc bool) interface{} {
	resultsField := v.FieldByName("Results")
	if !resultsField.IsValid() || (resultsField.Kind() != reflect.Slice && resultsField.Kind() != reflect.Array) {
		return nil
	}

	updated := applyToSlice(resultsField, limit, sortBy, desc)
	if !updated.IsValid() {
		return nil
	}

	if resultsField.CanSet() {
		resultsField.Set(updated)
		return v.Interface()
	}

	copyVal := reflect.New(v.Type()).Elem()
	copyVal.Set(v)
	copyResults := copyVal.FieldByName("Results")
	if copyResults.IsValid() && copyResults.CanSet() {
		copyResults.Set(updated)
		return copyVal.Interface()
	}
	return nil
}

// applyToSlice copies, sorts and limits a slice value. Items without the
// sort field go last in both directions.
func applyToSlice(v reflect.Value, limit int, sortBy string, desc bool) reflect.Value {
	length := v.Len()
	if length == 0 {
		return v
	}

	sliceType := v.Type()
	if v.Kind() == reflect.Array {
		sliceType = reflect.SliceOf(v.Type().Elem())
	}
	copySlice := reflect.MakeSlice(sliceType, length, length)
	reflect.Copy(copySlice, v)

	if sortBy != "" {
		values := make([]interface{}, length)
		present := make([]bool, length)
		for i := 0; i < length; i++ {
			val, ok := table.Lookup(copySlice.Index(i).Interface(), sortBy)
			values[i], present[i] = val, ok && !table.IsNull(val)
		}
		idx := make([]int, length)
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(i, j int) bool {
			return lessPresent(values[idx[i]], present[idx[i]], values[idx[j]], present[idx[j]], desc)
		})
		sorted := reflect.MakeSlice(sliceType, length, length)
		for i, from := range idx {
			sorted.Index(i).Set(copySlice.Index(from))
		}
		copySlice = sorted
	}

	if limit > 0 && limit < copySlice.Len() {
		return copySlice.Slice(0, limit)
	}
	return copySlice
}

func lessPresent(a interface{}, aok bool, b interface{}, bok bool, desc bool) bool {
	switch {
	case !aok:
		return false
	case !bok:
		return true
	}
	cmp := table.Compare(a, b)
	if desc {
		return cmp > 0
	}
	return cmp < 0
}
