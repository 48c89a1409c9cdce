// Package pms describes the resources of the hotel PMS API: which columns
// to show for each one, how it sorts by default and which sub-actions it
// accepts.
package pms

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/salmonumbrella/pms-cli/internal/table"
)

// Schema describes how a resource is listed.
type Schema struct {
	Resource    string
	Title       string
	Columns     []table.Column
	DefaultSort table.SortState
	Actions     []Action
	// Known is false for schemas inferred from data.
	Known bool
}

// ColumnKeys returns the keys of the schema columns in display order.
func (s Schema) ColumnKeys() []string {
	keys := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		keys[i] = c.Key()
	}
	return keys
}

func asc(key string) table.SortState  { return table.SortState{Key: key, Direction: table.Asc} }
func desc(key string) table.SortState { return table.SortState{Key: key, Direction: table.Desc} }

func col(key, header string, opts ...table.Option) table.Column {
	return table.Field(key, header, append([]table.Option{table.SortableColumn()}, opts...)...)
}

// money is a sortable, right-aligned amount column. DRF serialises
// decimals as strings, so the accessor parses them to sort numerically.
func money(key, header string) table.Column {
	return table.Field(key, header,
		table.SortableColumn(),
		table.Right(),
		table.Accessor(func(row any) any {
			if d, ok := Amount(row, key); ok {
				return d
			}
			return nil
		}),
		table.Render(func(row any) string {
			if d, ok := Amount(row, key); ok {
				return d.StringFixed(2)
			}
			return ""
		}),
	)
}

func idColumn() table.Column {
	return col("id", "ID", table.Right())
}

var registry = map[string]Schema{
	"hotels": {
		Title: "Hoteles",
		Columns: []table.Column{
			idColumn(),
			col("name", "Nombre"),
			col("city", "Ciudad"),
			col("stars", "Estrellas", table.Right()),
			col("is_active", "Activo"),
		},
		DefaultSort: asc("name"),
	},
	"rooms": {
		Title: "Habitaciones",
		Columns: []table.Column{
			idColumn(),
			col("number", "Número"),
			col("room_type_name", "Tipo"),
			col("floor", "Piso", table.Right()),
			col("status", "Estado"),
			col("is_active", "Activa"),
		},
		DefaultSort: asc("number"),
	},
	"room-types": {
		Title: "Tipos de habitación",
		Columns: []table.Column{
			idColumn(),
			col("name", "Nombre"),
			col("capacity", "Capacidad", table.Right()),
			money("base_price", "Precio base"),
		},
		DefaultSort: asc("name"),
	},
	"reservations": {
		Title: "Reservas",
		Columns: []table.Column{
			idColumn(),
			col("code", "Código"),
			col("guest_name", "Huésped"),
			col("room_number", "Habitación"),
			col("check_in", "Entrada"),
			col("check_out", "Salida"),
			col("status", "Estado"),
			money("total_amount", "Total"),
		},
		DefaultSort: desc("check_in"),
		Actions: []Action{
			{Name: "check-in", Method: "POST", ItemLevel: true, Description: "Registrar la entrada del huésped"},
			{Name: "check-out", Method: "POST", ItemLevel: true, Description: "Registrar la salida del huésped"},
			{Name: "cancel", Method: "POST", ItemLevel: true, Description: "Cancelar la reserva"},
		},
	},
	"guests": {
		Title: "Huéspedes",
		Columns: []table.Column{
			idColumn(),
			col("first_name", "Nombre"),
			col("last_name", "Apellido"),
			col("email", "Email"),
			col("phone", "Teléfono"),
			col("document_number", "Documento"),
		},
		DefaultSort: asc("last_name"),
	},
	"rates": {
		Title: "Tarifas",
		Columns: []table.Column{
			idColumn(),
			col("name", "Nombre"),
			col("room_type_name", "Tipo"),
			money("price", "Precio"),
			col("start_date", "Desde"),
			col("end_date", "Hasta"),
		},
		DefaultSort: asc("start_date"),
	},
	"housekeeping/tasks": {
		Title: "Tareas de limpieza",
		Columns: []table.Column{
			idColumn(),
			col("room_number", "Habitación"),
			col("task_type", "Tipo"),
			col("status", "Estado"),
			col("assigned_to_name", "Asignada a"),
			col("scheduled_date", "Fecha"),
		},
		DefaultSort: asc("scheduled_date"),
		Actions: []Action{
			{Name: "start", Method: "POST", ItemLevel: true, Description: "Iniciar la tarea"},
			{Name: "complete", Method: "POST", ItemLevel: true, Description: "Completar la tarea"},
		},
	},
	"payments": {
		Title: "Pagos",
		Columns: []table.Column{
			idColumn(),
			col("reservation", "Reserva", table.Right()),
			money("amount", "Monto"),
			col("method", "Método"),
			col("status", "Estado"),
			col("is_deposit", "Depósito"),
			col("date", "Fecha"),
		},
		DefaultSort: desc("date"),
		Actions: []Action{
			{Name: "generate-invoice", Method: "POST", ItemLevel: true, Description: "Generar la factura del pago"},
		},
	},
	"refunds": {
		Title: "Reembolsos",
		Columns: []table.Column{
			idColumn(),
			col("payment", "Pago", table.Right()),
			money("amount", "Monto"),
			col("status", "Estado"),
			col("reason", "Motivo"),
			col("created_at", "Creado"),
		},
		DefaultSort: desc("created_at"),
		Actions: []Action{
			{Name: "process", Method: "POST", ItemLevel: true, Description: "Procesar el reembolso"},
		},
	},
	"invoices": {
		Title: "Facturas",
		Columns: []table.Column{
			idColumn(),
			col("number", "Número"),
			col("reservation", "Reserva", table.Right()),
			money("total", "Total"),
			col("status", "Estado"),
			col("issued_at", "Emitida"),
		},
		DefaultSort: desc("issued_at"),
		Actions: []Action{
			{Name: "send", Method: "POST", ItemLevel: true, Description: "Enviar la factura por email"},
		},
	},
	"ota/channels": {
		Title: "Canales OTA",
		Columns: []table.Column{
			idColumn(),
			col("name", "Nombre"),
			col("provider", "Proveedor"),
			col("is_active", "Activo"),
			col("last_sync", "Última sincronización"),
		},
		DefaultSort: asc("name"),
		Actions: []Action{
			{Name: "sync", Method: "POST", ItemLevel: true, Description: "Sincronizar disponibilidad y tarifas"},
		},
	},
	"notifications": {
		Title: "Notificaciones",
		Columns: []table.Column{
			idColumn(),
			col("title", "Título"),
			col("type", "Tipo"),
			col("is_read", "Leída"),
			col("created_at", "Fecha"),
		},
		DefaultSort: desc("created_at"),
		Actions: []Action{
			{Name: "mark-read", Method: "POST", ItemLevel: true, Description: "Marcar como leída"},
			{Name: "mark-all-read", Method: "POST", Description: "Marcar todas como leídas"},
		},
	},
}

func init() {
	for name, s := range registry {
		s.Resource = name
		s.Known = true
		registry[name] = s
	}
}

// NormalizeResource trims slashes and lowercases a resource name.
func NormalizeResource(resource string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(resource), "/"))
}

// Lookup returns the schema of a known resource.
func Lookup(resource string) (Schema, bool) {
	s, ok := registry[NormalizeResource(resource)]
	return s, ok
}

// Resources returns every known schema ordered by resource name.
func Resources() []Schema {
	out := make([]Schema, 0, len(registry))
	for _, s := range registry {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Resource < out[j].Resource })
	return out
}

// SchemaFor returns the known schema for resource, or one inferred from
// the first row of rows.
func SchemaFor(resource string, rows []any) Schema {
	if s, ok := Lookup(resource); ok {
		return s
	}
	return Infer(resource, rows)
}

// Infer builds a schema with one sortable column per key of the first
// row. id comes first; the other keys follow in alphabetical order.
// Nested objects and arrays are skipped.
func Infer(resource string, rows []any) Schema {
	s := Schema{Resource: NormalizeResource(resource), Title: NormalizeResource(resource)}
	if len(rows) == 0 {
		s.Columns = []table.Column{idColumn()}
		return s
	}

	row, ok := rows[0].(map[string]any)
	if !ok {
		s.Columns = []table.Column{idColumn()}
		return s
	}

	keys := make([]string, 0, len(row))
	for k, v := range row {
		if k == "id" {
			continue
		}
		switch v.(type) {
		case map[string]any, []any:
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if _, ok := row["id"]; ok {
		s.Columns = append(s.Columns, idColumn())
		s.DefaultSort = asc("id")
	}
	for _, k := range keys {
		opts := []table.Option{}
		if isNumeric(row[k]) {
			opts = append(opts, table.Right())
		}
		s.Columns = append(s.Columns, col(k, k, opts...))
	}
	if len(s.Columns) == 0 {
		s.Columns = []table.Column{idColumn()}
	}
	return s
}

func isNumeric(v any) bool {
	switch v := v.(type) {
	case float64, int, int64:
		return true
	case interface{ String() string }:
		_, err := decimal.NewFromString(v.String())
		return err == nil
	}
	return false
}
