package script

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var schemaSource []byte

// SchemaError lists every schema violation found in a script document.
type SchemaError struct {
	File   string
	Issues []string
}

func (e *SchemaError) Error() string {
	if len(e.Issues) == 1 {
		return fmt.Sprintf("%s: schema violation: %s", e.File, e.Issues[0])
	}
	return fmt.Sprintf("%s: %d schema violations:\n  %s", e.File, len(e.Issues), strings.Join(e.Issues, "\n  "))
}

var (
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	schemaDef  cue.Value
	schemaErr  error

	// cue.Context is not safe for concurrent use.
	schemaMu sync.Mutex
)

func loadSchema() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		v := schemaCtx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile script schema: %w", err)
			return
		}
		schemaDef = v.LookupPath(cue.ParsePath(schemaDefinition))
	})
	return schemaCtx, schemaDef, schemaErr
}

// CheckSchema validates a YAML document against the script schema without
// decoding it.
func CheckSchema(file string, data []byte) error {
	ctx, def, err := loadSchema()
	if err != nil {
		return err
	}
	schemaMu.Lock()
	defer schemaMu.Unlock()

	f, err := cueyaml.Extract(file, data)
	if err != nil {
		return fmt.Errorf("%s: parse YAML: %w", file, err)
	}
	doc := ctx.BuildFile(f)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("%s: build document: %w", file, err)
	}

	err = def.Unify(doc).Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	se := &SchemaError{File: file}
	for _, e := range cueerrors.Errors(err) {
		se.Issues = append(se.Issues, schemaIssue(e))
	}
	return se
}

// schemaDefinition is the root definition scripts are unified with. It is an
// implementation detail and never shown to users.
const schemaDefinition = "#Script"

// schemaIssue renders e as "path.to.field: message", relative to the
// document root.
func schemaIssue(e cueerrors.Error) string {
	path := e.Path()
	if len(path) > 0 && path[0] == schemaDefinition {
		path = path[1:]
	}
	format, args := e.Msg()
	msg := strings.ReplaceAll(fmt.Sprintf(format, args...), schemaDefinition+".", "")
	if len(path) == 0 {
		return msg
	}
	return strings.Join(path, ".") + ": " + msg
}
