package diag

import (
	"context"
	"fmt"
	"log/slog"
)

// Class identifies a kind of warning. Classes are stable and can be
// compared by callers; messages may carry variable detail.
type Class string

const (
	ClassHeader            Class = "invalid-header"
	ClassEOFMarker         Class = "eof-marker-missing"
	ClassStartXRefMissing  Class = "startxref-missing"
	ClassStartXRefSameLine Class = "startxref-same-line"
	ClassStartXRefPointer  Class = "startxref-pointer"
	ClassNotZeroIndexed    Class = "xref-not-zero-indexed"
	ClassXRefEntryInvalid  Class = "xref-entry-invalid"
	ClassXRefStmUnreadable Class = "xrefstm-unreadable"
	ClassXRefTypeUnknown   Class = "xref-type-unknown"
	ClassPrevZero          Class = "prev-zero"
	ClassPrevUnreadable    Class = "prev-unreadable"
	ClassChainLoop         Class = "xref-chain-loop"
	ClassInvalidParentXRef Class = "invalid-parent-xref"
	ClassInvalidTable      Class = "xref-table-invalid"
	ClassXRefRepaired      Class = "xref-repaired"
	ClassObjectsFound      Class = "objects-found"
	ClassObjectNotDefined  Class = "object-not-defined"
	ClassRefRepaired       Class = "ref-repaired"
	ClassDuplicateKey      Class = "duplicate-key"
	ClassStreamLength      Class = "stream-length"
	ClassPageTree          Class = "page-tree"
	ClassOutline           Class = "outline"
	ClassDestination       Class = "destination"
	ClassForm              Class = "form"
	ClassAttachment        Class = "attachment"
)

// NoOffset is used for warnings that are not tied to a byte position.
const NoOffset int64 = -1

// Warning is a single recorded diagnostic.
type Warning struct {
	Class   Class
	Offset  int64
	Message string
}

func (w Warning) String() string {
	if w.Offset < 0 {
		return fmt.Sprintf("[%s] %s", w.Class, w.Message)
	}
	return fmt.Sprintf("[%s] %s (at byte %d)", w.Class, w.Message, w.Offset)
}

type key struct {
	class  Class
	offset int64
	msg    string
}

// Collector accumulates warnings for one document. Identical warnings
// (same class, offset and message) are recorded once.
type Collector struct {
	logger   *slog.Logger
	warnings []Warning
	seen     map[key]struct{}
}

// New returns a collector that also logs every new warning to logger.
// A nil logger discards log output.
func New(logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Collector{
		logger: logger,
		seen:   make(map[key]struct{}),
	}
}

// Warn records a warning. It reports whether the warning was new.
func (c *Collector) Warn(class Class, offset int64, format string, args ...any) bool {
	if c == nil {
		return false
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}

	k := key{class: class, offset: offset, msg: msg}
	if _, dup := c.seen[k]; dup {
		return false
	}
	c.seen[k] = struct{}{}
	c.warnings = append(c.warnings, Warning{Class: class, Offset: offset, Message: msg})

	attrs := []slog.Attr{slog.String("class", string(class))}
	if offset >= 0 {
		attrs = append(attrs, slog.Int64("offset", offset))
	}
	c.logger.LogAttrs(context.Background(), slog.LevelWarn, msg, attrs...)
	return true
}

// Warnings returns a copy of the recorded warnings in order.
func (c *Collector) Warnings() []Warning {
	if c == nil {
		return nil
	}
	out := make([]Warning, len(c.warnings))
	copy(out, c.warnings)
	return out
}

// Messages returns just the warning messages in order.
func (c *Collector) Messages() []string {
	if c == nil {
		return nil
	}
	msgs := make([]string, len(c.warnings))
	for i, w := range c.warnings {
		msgs[i] = w.Message
	}
	return msgs
}

// Count returns how many warnings of the given class were recorded.
func (c *Collector) Count(class Class) int {
	if c == nil {
		return 0
	}
	n := 0
	for _, w := range c.warnings {
		if w.Class == class {
			n++
		}
	}
	return n
}

// Has reports whether any warning of the given class was recorded.
func (c *Collector) Has(class Class) bool {
	return c.Count(class) > 0
}

// Len returns the number of recorded warnings.
func (c *Collector) Len() int {
	if c == nil {
		return 0
	}
	return len(c.warnings)
}

// Logger returns the logger warnings are written to.
func (c *Collector) Logger() *slog.Logger {
	if c == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

// Reset discards all recorded warnings.
func (c *Collector) Reset() {
	if c == nil {
		return
	}
	c.warnings = nil
	c.seen = make(map[key]struct{})
}
