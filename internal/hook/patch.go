package hook

import (
	"fmt"
	"hash/crc32"
	"slices"
	"strings"
)

// Substitution replaces the first occurrence of Find with Replace.
type Substitution struct {
	Find    string
	Replace string
}

// Compiler turns patched source text back into a callable routine.
type Compiler func(name, source string) (Original, error)

// Patch rewrites the source of a defined operation and installs the
// recompiled body beneath its chain. Substitutions apply in order, each to
// the output of the previous one. If any fragment is missing, nothing is
// installed and the error wraps ErrPatchTargetMissing.
func (l *Layer) Patch(name string, subs []Substitution, compile Compiler) error {
	l.mu.Lock()
	op, ok := l.ops[name]
	if !ok || !op.defined {
		l.mu.Unlock()
		return &PatchError{Operation: name, Err: ErrUnknownOperation}
	}
	source := op.source
	if op.patched != "" {
		source = op.patched
	}
	l.mu.Unlock()

	if source == "" {
		return &PatchError{Operation: name, Err: fmt.Errorf("%w: no source registered", ErrPatchTargetMissing)}
	}

	for _, sub := range subs {
		idx := strings.Index(source, sub.Find)
		if idx < 0 {
			l.logger.Error("patch fragment not found", "operation", name, "fragment", sub.Find)
			return &PatchError{Operation: name, Fragment: sub.Find, Err: ErrPatchTargetMissing}
		}
		source = source[:idx] + sub.Replace + source[idx+len(sub.Find):]
	}

	body, err := compile(name, source)
	if err != nil {
		return &PatchError{Operation: name, Err: fmt.Errorf("compile: %w", err)}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	op.original = body
	op.patched = source
	l.logger.Info("operation patched", "operation", name, "substitutions", len(subs))
	return nil
}

// PatchedSource returns the current patched source, or "" if unpatched.
func (l *Layer) PatchedSource(name string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if op, ok := l.ops[name]; ok {
		return op.patched
	}
	return ""
}

// Checksum is the uppercase hex CRC-32 of a routine's source.
func Checksum(source string) string {
	return fmt.Sprintf("%08X", crc32.ChecksumIEEE([]byte(source)))
}

// Mismatch reports a defined operation whose source checksum is not in
// the known-good list.
type Mismatch struct {
	Operation string
	Checksum  string
	Expected  []string
}

// VerifyChecksums compares the original source of every operation listed
// in known against its accepted checksums. Operations that are undefined or
// carry no source are reported with an empty Checksum.
func (l *Layer) VerifyChecksums(known map[string][]string) []Mismatch {
	l.mu.Lock()
	defer l.mu.Unlock()

	names := make([]string, 0, len(known))
	for name := range known {
		names = append(names, name)
	}
	slices.Sort(names)

	var out []Mismatch
	for _, name := range names {
		expected := known[name]
		op, ok := l.ops[name]
		if !ok || !op.defined || op.source == "" {
			out = append(out, Mismatch{Operation: name, Expected: expected})
			continue
		}
		sum := Checksum(op.source)
		if !slices.Contains(expected, sum) {
			out = append(out, Mismatch{Operation: name, Checksum: sum, Expected: expected})
		}
	}
	for _, m := range out {
		l.logger.Warn("host routine checksum mismatch",
			"operation", m.Operation,
			"checksum", m.Checksum,
			"expected", m.Expected,
		)
	}
	return out
}
