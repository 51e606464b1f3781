// Package snapshot streams every artifact of a restaurant into a single
// gzip-compressed file of JSON lines, and back.
//
// Each artifact starts with a header line naming its columns, followed by one
// line per row:
//
//	{"artifact":"menu","columns":["name","price","item_type","available"]}
//	{"artifact":"menu","fields":{"name":"Burger","price":"8.5",...}}
package snapshot

import (
	"bufio"
	"io"
	"slices"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"

	"github.com/xenking/restaurant-desk/internal/record"
)

// maxLine bounds a single encoded row. Order rows embed their items.
const maxLine = 16 << 20

// Write encodes sets to w in the given order.
func Write(w io.Writer, sets []record.Set) error {
	gz := pgzip.NewWriter(w)
	bw := bufio.NewWriter(gz)

	var e jx.Encoder
	for _, set := range sets {
		e.Reset()
		e.ObjStart()
		e.FieldStart("artifact")
		e.Str(set.Schema.Name)
		e.FieldStart("columns")
		e.ArrStart()
		for _, name := range set.Schema.ColumnNames() {
			e.Str(name)
		}
		e.ArrEnd()
		e.ObjEnd()
		if err := writeLine(bw, &e); err != nil {
			return err
		}

		for i, r := range set.Records {
			if err := set.Schema.Check(r); err != nil {
				return record.AtRow(err, set.Schema.Name, i+1)
			}
			e.Reset()
			e.ObjStart()
			e.FieldStart("artifact")
			e.Str(set.Schema.Name)
			e.FieldStart("fields")
			e.ObjStart()
			for _, name := range set.Schema.ColumnNames() {
				e.FieldStart(name)
				e.Str(r[name])
			}
			e.ObjEnd()
			e.ObjEnd()
			if err := writeLine(bw, &e); err != nil {
				return err
			}
		}
	}

	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, "flush")
	}
	if err := gz.Close(); err != nil {
		return errors.Wrap(err, "close gzip writer")
	}
	return nil
}

func writeLine(w *bufio.Writer, e *jx.Encoder) error {
	if _, err := w.Write(e.Bytes()); err != nil {
		return errors.Wrap(err, "write")
	}
	if err := w.WriteByte('\n'); err != nil {
		return errors.Wrap(err, "write")
	}
	return nil
}

type line struct {
	artifact string
	columns  []string
	fields   record.Record
}

func parseLine(data []byte) (line, error) {
	var l line
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "artifact":
			v, err := d.Str()
			l.artifact = v
			return err
		case "columns":
			l.columns = []string{}
			return d.Arr(func(d *jx.Decoder) error {
				v, err := d.Str()
				l.columns = append(l.columns, v)
				return err
			})
		case "fields":
			l.fields = record.Record{}
			return d.Obj(func(d *jx.Decoder, key string) error {
				v, err := d.Str()
				l.fields[key] = v
				return err
			})
		default:
			return d.Skip()
		}
	})
	return l, err
}

// Read decodes a snapshot written by Write. Only artifacts named in schemas
// are accepted, their columns must match the schema, and every row is
// checked against it. Sets are returned in the order they appear.
func Read(r io.Reader, schemas []record.Schema) ([]record.Set, error) {
	gz, err := pgzip.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "create gzip reader")
	}
	defer func() { _ = gz.Close() }()

	known := make(map[string]record.Schema, len(schemas))
	for _, s := range schemas {
		known[s.Name] = s
	}

	var (
		sets    []record.Set
		current = -1
		n       int
	)
	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLine)
	for scanner.Scan() {
		n++
		l, err := parseLine(scanner.Bytes())
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", n)
		}
		schema, ok := known[l.artifact]
		if !ok {
			return nil, errors.Errorf("line %d: unknown artifact %q", n, l.artifact)
		}

		switch {
		case l.columns != nil:
			if !slices.Equal(l.columns, schema.ColumnNames()) {
				return nil, errors.Errorf("line %d: %s columns %v do not match %v", n, l.artifact, l.columns, schema.ColumnNames())
			}
			if slices.ContainsFunc(sets, func(s record.Set) bool { return s.Schema.Name == l.artifact }) {
				return nil, errors.Errorf("line %d: duplicate artifact %q", n, l.artifact)
			}
			sets = append(sets, record.Set{Schema: schema, Records: []record.Record{}})
			current = len(sets) - 1
		case l.fields != nil:
			if current < 0 || sets[current].Schema.Name != l.artifact {
				return nil, errors.Errorf("line %d: %s row outside its artifact", n, l.artifact)
			}
			set := &sets[current]
			if err := schema.Check(l.fields); err != nil {
				return nil, record.AtRow(err, schema.Name, len(set.Records)+1)
			}
			set.Records = append(set.Records, l.fields)
		default:
			return nil, errors.Errorf("line %d: neither columns nor fields", n)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan")
	}
	return sets, nil
}
