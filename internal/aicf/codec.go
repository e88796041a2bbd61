// Package aicf implements the AICF (pipe-delimited, line-per-field) codec:
// the append-safe, atomic, lockable reader/writer every pipeline stage uses
// to persist conversation records, session files and the permissions store.
package aicf

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/aicfd/aicfd/internal/fsutil"
	"github.com/aicfd/aicfd/internal/logging"
)

// Version is the AICF format version stamped as the first line of every file.
const Version = "3.0.0-alpha"

const fieldSep = "|"

// Codec reads and writes AICF files. The zero value is ready to use with
// identity redaction; call WithRedactor to enable PII filtering.
type Codec struct {
	redactor Redactor
}

// New returns a Codec with identity redaction (no fields altered).
func New() *Codec {
	return &Codec{redactor: IdentityRedactor{}}
}

// WithRedactor returns a copy of the codec using r to filter every field
// before it is written.
func (c *Codec) WithRedactor(r Redactor) *Codec {
	return &Codec{redactor: r}
}

// ErrInvalidField is returned when a field contains a byte the format
// forbids: '|', CR or LF.
type ErrInvalidField struct {
	Field string
}

func (e *ErrInvalidField) Error() string {
	return fmt.Sprintf("aicf: field contains a reserved delimiter: %q", e.Field)
}

// validateField rejects any field containing the pipe delimiter or a line
// break; callers must pre-sanitize rather than rely on the codec to do so.
func validateField(field string) error {
	if strings.ContainsAny(field, "|\r\n") {
		return &ErrInvalidField{Field: field}
	}
	return nil
}

// encodeLine joins fields with the pipe delimiter after redaction and
// validation, producing one line without its trailing newline.
func (c *Codec) encodeLine(fields ...string) (string, error) {
	redactor := c.redactor
	if redactor == nil {
		redactor = IdentityRedactor{}
	}

	out := make([]string, len(fields))
	for i, f := range fields {
		clean := redactor.Redact(f)
		if err := validateField(clean); err != nil {
			return "", err
		}
		out[i] = clean
	}
	return strings.Join(out, fieldSep), nil
}

// AppendLine encodes fields as one pipe-delimited line and appends it to
// path atomically (the whole file is rewritten via tmp-then-rename, guarded
// by a per-path advisory lock). If path does not yet exist it is created
// with the version header first.
func (c *Codec) AppendLine(path string, fields ...string) error {
	line, err := c.encodeLine(fields...)
	if err != nil {
		return err
	}

	lock := fsutil.NewFileLock(path)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("aicf: acquire lock: %w", err)
	}
	defer lock.Unlock()

	existing, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("aicf: read %s: %w", path, err)
		}
		header, herr := c.encodeLine("version", Version)
		if herr != nil {
			return herr
		}
		existing = []byte(header + "\n")
	}

	data := append(existing, []byte(line+"\n")...)
	return fsutil.WriteAtomic(path, data, 0o644)
}

// WriteRecord atomically (re)writes path as a version header followed by
// one line per entry in records, where each entry is the field list for one
// line (e.g. []string{"conversationId", id}).
func (c *Codec) WriteRecord(path string, records [][]string) error {
	lock := fsutil.NewFileLock(path)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("aicf: acquire lock: %w", err)
	}
	defer lock.Unlock()

	var buf bytes.Buffer

	header, err := c.encodeLine("version", Version)
	if err != nil {
		return err
	}
	buf.WriteString(header)
	buf.WriteByte('\n')

	for _, fields := range records {
		line, err := c.encodeLine(fields...)
		if err != nil {
			return err
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}

	return fsutil.WriteAtomic(path, buf.Bytes(), 0o644)
}

// WriteRaw atomically (re)writes path as exactly one pipe-delimited line,
// with no version header. It exists for the archive/ tier, whose contract
// (spec §4.6) is a single-line summary rather than a full AICF record.
func (c *Codec) WriteRaw(path string, fields []string) error {
	lock := fsutil.NewFileLock(path)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("aicf: acquire lock: %w", err)
	}
	defer lock.Unlock()

	line, err := c.encodeLine(fields...)
	if err != nil {
		return err
	}

	return fsutil.WriteAtomic(path, []byte(line+"\n"), 0o644)
}

// Line is one decoded record: Tag is fields[0], Fields is fields[1:].
type Line struct {
	Tag    string
	Fields []string
}

// ReadResult is the outcome of ReadAll: the decoded lines after the version
// header, plus a count of lines skipped as malformed.
type ReadResult struct {
	Version string
	Lines   []Line
	Skipped int
}

// ReadAll parses an AICF file, skipping malformed lines rather than failing
// the whole read, and reports how many were skipped.
func (c *Codec) ReadAll(path string) (*ReadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("aicf: open %s: %w", path, err)
	}
	defer f.Close()

	result := &ReadResult{}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	first := true
	for scanner.Scan() {
		raw := scanner.Text()
		if strings.TrimSpace(raw) == "" {
			continue
		}

		fields := strings.Split(raw, fieldSep)
		if len(fields) == 0 || fields[0] == "" {
			result.Skipped++
			continue
		}

		if first {
			first = false
			if fields[0] == "version" && len(fields) >= 2 {
				result.Version = fields[1]
				if !ValidVersion(result.Version) {
					logging.Warn().Str("path", path).Str("version", result.Version).
						Msg("aicf: file version is not compatible with the current major version")
				}
				continue
			}
			// Missing version header: treat the whole file as legacy/corrupt
			// by counting this line skipped, but still attempt to parse the rest.
			result.Skipped++
			continue
		}

		result.Lines = append(result.Lines, Line{Tag: fields[0], Fields: fields[1:]})
	}

	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("aicf: scan %s: %w", path, err)
	}

	return result, nil
}

// ValidVersion reports whether v parses as a semver-compatible AICF version
// string whose major version matches the codec's current major version.
func ValidVersion(v string) bool {
	parsed, err := semver.NewVersion(v)
	if err != nil {
		return false
	}
	expected, err := semver.NewVersion(Version)
	if err != nil {
		return false
	}
	return parsed.Major() == expected.Major()
}
