package mbti

import (
	"bytes"
	"crypto/sha1"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// LoaderOptions configures a Loader. Zero values fall back to the OS
// filesystem, the built-in column candidates and a no-op logger.
type LoaderOptions struct {
	Fs      afero.Fs
	Columns ColumnCandidates
	Logger  *zap.Logger
}

// ParseOptions controls a single parse of raw dataset bytes.
type ParseOptions struct {
	// Comma is the field delimiter; 0 means ','.
	Comma   rune
	Columns ColumnCandidates
	Source  SourceID
}

// Loader reads dataset files and normalizes them into tables.
type Loader struct {
	fs      afero.Fs
	columns ColumnCandidates
	logger  *zap.Logger
}

// NewLoader constructs a loader.
func NewLoader(opts LoaderOptions) *Loader {
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{fs: fs, columns: opts.Columns.WithDefaults(), logger: logger}
}

// Fs returns the filesystem the loader reads from.
func (l *Loader) Fs() afero.Fs {
	return l.fs
}

// Load reads path and builds its canonical table.
func (l *Loader) Load(path string) (*Table, error) {
	data, id, err := l.ReadSource(path)
	if err != nil {
		return nil, err
	}
	return l.ParseSource(data, id)
}

// Stat returns the identity of path without its content digest.
func (l *Loader) Stat(path string) (SourceID, error) {
	info, err := l.fs.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return SourceID{}, &SourceError{Path: path, Message: "file does not exist", Err: ErrSourceNotFound}
		}
		return SourceID{}, &SourceError{Path: path, Message: err.Error(), Err: errors.Join(ErrSourceNotFound, err)}
	}
	if info.IsDir() {
		return SourceID{}, &SourceError{Path: path, Message: "path is a directory", Err: ErrSourceNotFound}
	}
	return SourceID{Path: path, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// ReadSource reads the raw bytes of path together with their identity.
func (l *Loader) ReadSource(path string) ([]byte, SourceID, error) {
	id, err := l.Stat(path)
	if err != nil {
		return nil, SourceID{}, err
	}
	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, SourceID{}, &SourceError{Path: path, Message: "file does not exist", Err: ErrSourceNotFound}
		}
		return nil, SourceID{}, &SourceError{Path: path, Message: fmt.Sprintf("read %s: %v", filepath.Base(path), err), Err: errors.Join(ErrSourceNotFound, err)}
	}
	id.Size = int64(len(data))
	id.Digest = Digest(data)
	return data, id, nil
}

// ParseSource parses bytes previously returned by ReadSource.
func (l *Loader) ParseSource(data []byte, id SourceID) (*Table, error) {
	comma := ','
	if strings.EqualFold(filepath.Ext(id.Path), ".tsv") {
		comma = '\t'
	}
	table, err := Parse(bytes.NewReader(data), ParseOptions{Comma: comma, Columns: l.columns, Source: id})
	if err != nil {
		l.logger.Warn("dataset rejected", zap.String("path", id.Path), zap.Error(err))
		return nil, err
	}
	schema := table.Schema()
	l.logger.Info("dataset loaded",
		zap.String("path", id.Path),
		zap.String("schema", string(schema.Variant)),
		zap.Int("countries", table.Len()),
		zap.Int("types", len(schema.Bindings)),
		zap.String("digest", id.Digest),
	)
	if missing := len(TypeCodes) - len(schema.Bindings); missing > 0 {
		l.logger.Debug("type columns missing", zap.String("path", id.Path), zap.Int("missing", missing))
	}
	return table, nil
}

// Digest returns the content identity used for memoization.
func Digest(data []byte) string {
	h := sha1.Sum(data)
	return hex.EncodeToString(h[:])
}

// Parse normalizes a delimited dataset into a canonical table. It is a pure
// function of its input: the same bytes always produce the same table.
func Parse(r io.Reader, opts ParseOptions) (*Table, error) {
	path := opts.Source.Path
	reader := csv.NewReader(r)
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, malformed(path, 0, nil, "empty file")
		}
		return nil, csvFailure(path, err)
	}
	schema, ok := DetectSchema(header, opts.Columns)
	if !ok {
		return nil, malformed(path, 1, nil, "no country column in header %q", strings.Join(NormalizeAll(header), ","))
	}

	var rows []CanonicalRow
	seen := make(map[string]int)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvFailure(path, err)
		}
		line, _ := reader.FieldPos(0)
		if blankRecord(record) {
			continue
		}
		row, err := normalizeRecord(record, schema, path, line)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[row.Country]; dup {
			return nil, malformed(path, line, nil, "duplicate country %q (first seen on line %d)", row.Country, prev)
		}
		seen[row.Country] = line
		rows = append(rows, row)
	}
	return newTable(rows, schema, opts.Source), nil
}

func normalizeRecord(record []string, schema Schema, path string, line int) (CanonicalRow, error) {
	country := NormalizeText(cellAt(record, schema.CountryColumn))
	if country == "" {
		return CanonicalRow{}, malformed(path, line, nil, "blank country identifier")
	}
	row := CanonicalRow{Country: country, Values: make(map[TypeCode]float64, len(schema.Bindings))}
	for _, b := range schema.Bindings {
		switch b.Kind {
		case BindSplit:
			a, okA, err := parsePercentCell(record, b.Assertive)
			if err != nil {
				return CanonicalRow{}, malformed(path, line, err, "column %s%s: %v", b.Type, assertiveSuffix, err)
			}
			t, okT, err := parsePercentCell(record, b.Turbulent)
			if err != nil {
				return CanonicalRow{}, malformed(path, line, err, "column %s%s: %v", b.Type, turbulentSuffix, err)
			}
			if okA && okT {
				row.Values[b.Type] = (a + t) * 100
			}
		case BindMerged:
			v, ok, err := parsePercentCell(record, b.Merged)
			if err != nil {
				return CanonicalRow{}, malformed(path, line, err, "column %s: %v", b.Type, err)
			}
			if ok {
				row.Values[b.Type] = v
			}
		}
	}
	return row, nil
}

// parsePercentCell reports ok=false for empty or missing cells.
func parsePercentCell(record []string, idx int) (float64, bool, error) {
	raw := strings.TrimSpace(cellAt(record, idx))
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, false, fmt.Errorf("invalid number %q", raw)
	}
	if math.IsNaN(v) {
		return 0, false, nil
	}
	return v, true, nil
}

func cellAt(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}

func blankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func csvFailure(path string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return malformed(path, pe.StartLine, err, "%v", pe.Err)
	}
	return malformed(path, 0, err, "read %s: %v", filepath.Base(path), err)
}
