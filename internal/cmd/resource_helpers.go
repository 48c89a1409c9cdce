package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/salmonumbrella/pms-cli/internal/logging"
	"github.com/salmonumbrella/pms-cli/internal/notify"
	"github.com/salmonumbrella/pms-cli/internal/output"
	"github.com/salmonumbrella/pms-cli/internal/resource"
)

// resourceLayer builds the access layer for one command run. Mutation
// outcomes go to stderr; errors wait for Enter only on an interactive
// terminal without --yes.
func resourceLayer(ctx context.Context) *resource.Layer {
	in, errOut := stdinFromContext(ctx), stderrFromContext(ctx)
	opts := []notify.TerminalOption{notify.WithQuiet(output.QuietFromContext(ctx))}
	if output.YesFromContext(ctx) {
		opts = append(opts, notify.WithConfirm(false))
	}
	n := notify.NewTerminal(in, errOut, opts...)
	return resource.NewLayer(GetClient(), n, resource.WithLogger(logging.Logger()))
}

// readDataFlag decodes a --data value: inline JSON, @path for a file, or
// - for stdin. An empty value means no body.
func readDataFlag(ctx context.Context, value string) (any, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	raw := value
	switch {
	case value == "-":
		if !inputHasData(stdinFromContext(ctx)) {
			return nil, fmt.Errorf("--data - expects JSON on stdin")
		}
		loaded, err := readInputSource("-", stdinFromContext(ctx))
		if err != nil {
			return nil, err
		}
		raw = loaded
	case strings.HasPrefix(value, "@"):
		loaded, err := readInputSource(strings.TrimPrefix(value, "@"), stdinFromContext(ctx))
		if err != nil {
			return nil, err
		}
		raw = loaded
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var body any
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("invalid --data JSON: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("invalid --data JSON: trailing data after value")
	}
	return body, nil
}

// confirmDestructive asks the user to type "yes". With --yes it returns
// true without asking.
func confirmDestructive(ctx context.Context, prompt string) bool {
	if output.YesFromContext(ctx) {
		return true
	}
	errOut := stderrFromContext(ctx)
	fmt.Fprintf(errOut, "%s This cannot be undone.\n", prompt)
	fmt.Fprint(errOut, "Type 'yes' to confirm: ")
	reader := bufio.NewReader(stdinFromContext(ctx))
	answer, _ := reader.ReadString('\n')
	if strings.TrimSpace(answer) != "yes" {
		fmt.Fprintln(errOut, "Aborted.")
		return false
	}
	return true
}

// printEntity prints a decoded entity, or a short confirmation when the
// server sent no body.
func printEntity(ctx context.Context, raw json.RawMessage, fallback map[string]interface{}) error {
	data, err := resource.DecodeRow(raw)
	if err != nil {
		return err
	}
	if data == nil {
		if fallback == nil {
			return nil
		}
		data = fallback
	}
	return printData(ctx, data)
}

// printData prints with the output options of ctx (format, --query,
// --result-limit, --result-sort-by).
func printData(ctx context.Context, data interface{}) error {
	printer := output.NewPrinter(stdoutFromContext(ctx), GetOutputFormat())
	return printer.Print(ctx, data)
}
