// Package sandbox accumulates proposed changes during a run and commits them
// to the project tree in one pass once every artifact has been processed.
// Nothing touches storage until Commit, so an aborted run leaves the project
// as it was found.
package sandbox

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/jonathan/a11y-remediator/internal/templates"
	"github.com/jonathan/a11y-remediator/internal/types"
)

// Entry is one recorded change together with the component that produced it.
type Entry struct {
	Component string       `json:"component"`
	Change    types.Change `json:"change"`
}

// ApplyFailure records one change that could not be written or verified.
type ApplyFailure struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Ledger holds changes in memory until Commit. It is not safe for concurrent
// use; a run processes artifacts sequentially.
type Ledger struct {
	entries  []Entry
	applied  int
	failures []ApplyFailure
}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Record adds a proposed change for a component without touching storage.
func (l *Ledger) Record(component string, change types.Change) {
	l.entries = append(l.entries, Entry{Component: component, Change: change})
}

// Len returns the number of recorded changes.
func (l *Ledger) Len() int { return len(l.entries) }

// Entries returns the recorded changes in record order.
func (l *Ledger) Entries() []Entry { return l.entries }

// Applied returns how many changes the last Commit wrote and verified.
func (l *Ledger) Applied() int { return l.applied }

// Failures returns the changes the last Commit or Revert could not apply.
func (l *Ledger) Failures() []ApplyFailure { return l.failures }

// Commit writes every recorded change under root and verifies each write by
// reading it back. A failed write is reported and skipped, never aborting
// the remaining changes. Returns the number of changes applied.
func (l *Ledger) Commit(root string) int {
	l.applied = 0
	l.failures = nil
	for _, entry := range l.entries {
		if err := writeChange(root, entry.Change.Path, entry.Change.Corrected); err != nil {
			log.Printf("[APPLY] Could not apply change to %s: %v", entry.Change.Path, err)
			l.failures = append(l.failures, ApplyFailure{Path: entry.Change.Path, Message: err.Error()})
			continue
		}
		l.applied++
	}
	log.Printf("[APPLY] Applied %d/%d changes", l.applied, len(l.entries))
	return l.applied
}

// Revert restores every recorded change's original content, undoing a
// previous Commit. Failures are reported per path, same as Commit. Returns
// the number of changes restored.
func (l *Ledger) Revert(root string) int {
	reverted := 0
	l.failures = nil
	for _, entry := range l.entries {
		if err := writeChange(root, entry.Change.Path, entry.Change.Original); err != nil {
			log.Printf("[APPLY] Could not revert change to %s: %v", entry.Change.Path, err)
			l.failures = append(l.failures, ApplyFailure{Path: entry.Change.Path, Message: err.Error()})
			continue
		}
		reverted++
	}
	log.Printf("[APPLY] Reverted %d/%d changes", reverted, len(l.entries))
	return reverted
}

// writeChange routes a change to its storage form: inline-template changes
// splice into their host file, everything else overwrites the file at path.
func writeChange(root, path, content string) error {
	if host, ordinal, ok := templates.ParseInlinePath(path); ok {
		return spliceInlineFile(filepath.Join(root, host), ordinal, content)
	}
	full := filepath.Join(root, path)
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		return err
	}
	return verifyWrite(full, content)
}

// spliceInlineFile replaces one inline template body inside its host file.
// The host is read at write time so earlier splices into the same file are
// preserved.
func spliceInlineFile(hostPath string, ordinal int, body string) error {
	source, err := os.ReadFile(hostPath)
	if err != nil {
		return err
	}
	updated, err := templates.SpliceInline(string(source), ordinal, body)
	if err != nil {
		return err
	}
	if err := os.WriteFile(hostPath, []byte(updated), 0644); err != nil {
		return err
	}
	return verifyWrite(hostPath, updated)
}

func verifyWrite(path, want string) error {
	got, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read back failed: %w", err)
	}
	if string(got) != want {
		return fmt.Errorf("content on disk does not match after write")
	}
	return nil
}
