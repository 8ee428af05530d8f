package config

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"
	"github.com/joho/godotenv"
	domainErrors "github.com/thomas-vilte/reqtracker/internal/errors"
	"github.com/thomas-vilte/reqtracker/internal/logger"
)

const (
	// EnvFileVar names the environment variable that overrides the store location.
	EnvFileVar     = "REQTRACKER_ENV_FILE"
	defaultEnvFile = ".env"
	defaultPerm    = 0o600
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Store is the flat KEY=value file holding model profiles, the selected
// profile and adapter credentials. Reads never fail; writes only touch the
// keys they are given and leave every other line as it was.
type Store struct {
	path      string
	fallbacks []Encoding
	mu        sync.Mutex
}

type Option func(*Store)

// WithFallbackEncodings replaces the encodings tried when the file is not UTF-8.
func WithFallbackEncodings(encs ...Encoding) Option {
	return func(s *Store) {
		s.fallbacks = encs
	}
}

func NewStore(path string, opts ...Option) *Store {
	s := &Store{
		path:      path,
		fallbacks: DefaultFallbackEncodings(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultEnvPath returns the store location: $REQTRACKER_ENV_FILE or ./.env.
func DefaultEnvPath() string {
	if p := os.Getenv(EnvFileVar); p != "" {
		return p
	}
	return defaultEnvFile
}

func (s *Store) Path() string {
	return s.path
}

// Load returns every key of the store. A missing, unreadable or undecodable
// file yields an empty map. A file decoded through a fallback encoding is
// rewritten as UTF-8.
func (s *Store) Load(ctx context.Context) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := logger.FromContext(ctx)
	values := make(map[string]string)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn("configuration file not readable, using empty configuration",
				"path", s.path,
				"error", err)
		}
		return values
	}

	text, encName, ok := s.decode(data)
	if !ok {
		log.Warn("configuration file could not be decoded with any known encoding",
			"path", s.path,
			"encodings", s.encodingNames())
		return values
	}

	if encName != EncodingUTF8 {
		s.rewriteUTF8(ctx, data, text, encName)
	}

	parsed, err := godotenv.Unmarshal(text)
	if err != nil {
		log.Warn("configuration file could not be parsed",
			"path", s.path,
			"error", err)
		return values
	}

	return parsed
}

// Save merges updates into the file. Lines for keys in updates are rewritten in
// place, keys not yet present are appended, everything else is kept verbatim.
func (s *Store) Save(ctx context.Context, updates map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withFileLock(func() error {
		var lines []string
		data, err := os.ReadFile(s.path)
		switch {
		case err == nil:
			text, _, ok := s.decode(data)
			if !ok {
				return domainErrors.ErrConfigDecode.WithContext("path", s.path)
			}
			lines = splitLines(text)
		case errors.Is(err, fs.ErrNotExist):
		default:
			return domainErrors.ErrConfigRead.WithError(err).WithContext("path", s.path)
		}

		merged, err := mergeLines(lines, updates)
		if err != nil {
			return err
		}

		if err := s.writeFile([]byte(merged)); err != nil {
			return err
		}

		logger.Debug(ctx, "configuration saved",
			"path", s.path,
			"count", len(updates))
		return nil
	})
}

// rewriteUTF8 replaces a file decoded through a fallback encoding with its
// UTF-8 text, unless another writer changed it since it was read.
func (s *Store) rewriteUTF8(ctx context.Context, original []byte, text, encName string) {
	log := logger.FromContext(ctx)

	err := s.withFileLock(func() error {
		current, err := os.ReadFile(s.path)
		if err != nil || !bytes.Equal(current, original) {
			return err
		}
		return s.writeFile([]byte(text))
	})
	if err != nil {
		log.Warn("failed to rewrite configuration file as UTF-8",
			"path", s.path,
			"from", encName,
			"error", err)
		return
	}
	log.Info("configuration file rewritten as UTF-8",
		"path", s.path,
		"from", encName)
}

func (s *Store) decode(data []byte) (string, string, bool) {
	if utf8.Valid(data) {
		return string(bytes.TrimPrefix(data, utf8BOM)), EncodingUTF8, true
	}

	for _, enc := range s.fallbacks {
		if text, ok := enc.decode(data); ok {
			return text, enc.Name, true
		}
	}

	return "", "", false
}

func (s *Store) encodingNames() []string {
	names := []string{EncodingUTF8}
	for _, enc := range s.fallbacks {
		names = append(names, enc.Name)
	}
	return names
}

// withFileLock runs fn while holding the advisory lock shared by every Store
// and process using the same file, so read-merge-write cycles never
// interleave. Callers hold s.mu.
func (s *Store) withFileLock(fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return domainErrors.ErrConfigWrite.WithError(err).WithContext("path", s.path)
	}

	lock := flock.New(s.path + ".lock")
	if err := lock.Lock(); err != nil {
		return domainErrors.ErrConfigWrite.WithError(err).WithContext("path", s.path)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	return fn()
}

// writeFile atomically replaces the file, keeping its permissions.
func (s *Store) writeFile(data []byte) error {
	perm := os.FileMode(defaultPerm)
	if info, err := os.Stat(s.path); err == nil {
		perm = info.Mode().Perm()
	}

	if err := renameio.WriteFile(s.path, data, perm); err != nil {
		return domainErrors.ErrConfigWrite.WithError(err).WithContext("path", s.path)
	}
	return nil
}

// splitLines splits text keeping each line terminator attached to its line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// lineKey returns the key assigned on a line, or false for comments, blank
// lines and anything that is not an assignment.
func lineKey(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return "", false
	}
	trimmed = strings.TrimPrefix(trimmed, "export ")

	key, _, found := strings.Cut(trimmed, "=")
	if !found {
		return "", false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false
	}
	return key, true
}

func lineEnding(line string) string {
	switch {
	case strings.HasSuffix(line, "\r\n"):
		return "\r\n"
	case strings.HasSuffix(line, "\n"):
		return "\n"
	default:
		return ""
	}
}

func mergeLines(lines []string, updates map[string]string) (string, error) {
	var sb strings.Builder
	written := make(map[string]bool, len(updates))

	for _, line := range lines {
		key, ok := lineKey(line)
		if !ok {
			sb.WriteString(line)
			continue
		}

		value, update := updates[key]
		if !update {
			sb.WriteString(line)
			continue
		}

		entry, err := formatEntry(key, value)
		if err != nil {
			return "", err
		}
		sb.WriteString(entry)
		sb.WriteString(lineEnding(line))
		written[key] = true
	}

	missing := make([]string, 0, len(updates))
	for key := range updates {
		if !written[key] {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)

	if len(missing) > 0 && sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
		sb.WriteString("\n")
	}

	for _, key := range missing {
		entry, err := formatEntry(key, updates[key])
		if err != nil {
			return "", err
		}
		sb.WriteString(entry)
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

func formatEntry(key, value string) (string, error) {
	if key == ProfilesKey {
		compact, err := compactJSON(value)
		if err != nil {
			return "", domainErrors.ErrInvalidProfile.WithError(err).WithContext("key", key)
		}
		if strings.Contains(compact, "$") || strings.Contains(compact, " #") {
			return key + "=" + quoteValue(compact), nil
		}
		return key + "=" + compact, nil
	}

	encoded, ok := encodeValue(value)
	if !ok {
		return "", domainErrors.ErrUnstorableValue.WithContext("key", key)
	}
	return key + "=" + encoded, nil
}

// encodeValue picks a form the dotenv parser reads back unchanged. A double
// quoted value cannot end in a backslash or a quote: the parser takes the
// closing quote as escaped or trims it. Those values are written bare or in
// single quotes instead, and rejected when neither form holds them.
func encodeValue(value string) (string, bool) {
	if !needsQuoting(value) {
		return value, true
	}
	if !strings.HasSuffix(value, `\`) && !strings.HasSuffix(value, `"`) {
		return quoteValue(value), true
	}
	if bareSafe(value) {
		return strings.ReplaceAll(value, "$", `\$`), true
	}
	if !strings.HasSuffix(value, `\`) && !strings.ContainsAny(value, "'\n\r") {
		return "'" + value + "'", true
	}
	return "", false
}

func needsQuoting(value string) bool {
	if value == "" {
		return false
	}
	if strings.ContainsAny(value, " \t#=\n\r$") {
		return true
	}
	if strings.HasPrefix(value, `"`) || strings.HasPrefix(value, "'") {
		return true
	}
	first, _ := utf8.DecodeRuneInString(value)
	last, _ := utf8.DecodeLastRuneInString(value)
	return unicode.IsSpace(first) || unicode.IsSpace(last)
}

// bareSafe reports whether value survives unquoted: the parser trims
// surrounding spaces, cuts the line at " #" and expands "$" unless escaped.
func bareSafe(value string) bool {
	if strings.ContainsAny(value, "\n\r") {
		return false
	}
	if strings.HasPrefix(value, `"`) || strings.HasPrefix(value, "'") {
		return false
	}
	first, _ := utf8.DecodeRuneInString(value)
	last, _ := utf8.DecodeLastRuneInString(value)
	if unicode.IsSpace(first) || unicode.IsSpace(last) {
		return false
	}
	prev := 'x'
	for _, r := range value {
		if r == '#' && unicode.IsSpace(prev) {
			return false
		}
		prev = r
	}
	return true
}

// quoteValue wraps value in double quotes using the escapes the dotenv parser
// understands, so the value always stays on one line.
func quoteValue(value string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"\n", `\n`,
		"\r", `\r`,
		"$", `\$`,
	)
	return `"` + r.Replace(value) + `"`
}
