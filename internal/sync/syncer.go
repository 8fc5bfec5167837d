// Package sync is the orchestrator for the public operation set. Each
// operation resolves a workspace record into a (local tree, vault
// tree) pair, builds the active filter, and drives the diff and apply
// engines over it.
package sync

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"stash/internal/apply"
	"stash/internal/diff"
	"stash/internal/errors"
	"stash/internal/filter"
	"stash/internal/guard"
	"stash/internal/textdiff"
	"stash/internal/tree"
	"stash/internal/validation"
	"stash/internal/watch"
	"stash/internal/workspace"

	"go.uber.org/zap"
)

// IgnoreFileName is the per-workspace ignore file, relative to the
// local root.
const IgnoreFileName = ".stashignore"

// DefaultAcquireTimeout bounds vault acquisition. Local trees are
// assumed cheap and are not timeout-guarded.
const DefaultAcquireTimeout = 3 * time.Second

// WorkspaceLookup resolves workspace binding records.
type WorkspaceLookup interface {
	Get(profileID, name string) (*workspace.Record, error)
}

// ArchiveProvider resolves a vault target identity into a tree. It may
// be slow; the syncer bounds every call with its acquire timeout.
type ArchiveProvider interface {
	GetOrLoad(ctx context.Context, target string) (tree.Tree, error)
}

// AccessChecker confirms the caller owns a target and it is still
// retained.
type AccessChecker interface {
	CanWrite(profileID, target string) error
}

// Syncer composes the diff, apply, guard and watch components over
// resolved workspaces.
//
// There is no mutual-exclusion lock across operations on the same
// workspace: two concurrent publish or revert calls may interleave
// their writes. That race is an accepted part of the design.
type Syncer struct {
	workspaces WorkspaceLookup
	archives   ArchiveProvider
	locals     *tree.Registry
	access     AccessChecker
	diff       *diff.Engine
	apply      *apply.Engine
	logger     *zap.Logger
	timeout    time.Duration
}

func NewSyncer(
	workspaces WorkspaceLookup,
	archives ArchiveProvider,
	locals *tree.Registry,
	access AccessChecker,
	logger *zap.Logger,
) *Syncer {
	return &Syncer{
		workspaces: workspaces,
		archives:   archives,
		locals:     locals,
		access:     access,
		diff:       diff.NewEngine(logger),
		apply:      apply.NewEngine(logger),
		logger:     logger,
		timeout:    DefaultAcquireTimeout,
	}
}

// SetAcquireTimeout overrides the vault acquisition window, mainly for
// tests.
func (s *Syncer) SetAcquireTimeout(d time.Duration) {
	s.timeout = d
}

// ChangeReport is the result of a read-only change listing. When the
// workspace's local path is missing the report carries NeedsRebind
// instead of failing, so callers can prompt for a new binding.
type ChangeReport struct {
	Entries     []diff.Entry
	NeedsRebind bool
}

// binding is the transient per-call tuple reconstructed from the
// workspace record on every operation. It is never persisted.
type binding struct {
	record  *workspace.Record
	local   *tree.LocalTree
	archive tree.Tree
}

// resolve runs all precondition checks before any tree I/O: identifier
// validity, record completeness and ownership. A rejected operation
// therefore never leaves partial state. With mutating false a missing
// local path yields a nil local tree instead of an error.
func (s *Syncer) resolve(profileID, name string, mutating bool) (*binding, error) {
	if err := validation.ValidateProfileID(profileID); err != nil {
		return nil, err
	}
	if err := validation.ValidateWorkspaceName(name); err != nil {
		return nil, err
	}

	record, err := s.workspaces.Get(profileID, name)
	if err != nil {
		return nil, err
	}
	if record.LocalPath == "" {
		return nil, errors.InvalidInput(fmt.Sprintf("workspace %s has no local path", name))
	}
	if record.Target == "" {
		return nil, errors.InvalidInput(fmt.Sprintf("workspace %s has no publish target", name))
	}
	if err := validation.ValidateTarget(record.Target); err != nil {
		return nil, err
	}

	// Ownership is checked before trusting the record for diff or
	// apply, not just before mutations.
	if err := s.access.CanWrite(profileID, record.Target); err != nil {
		return nil, err
	}

	b := &binding{record: record}

	local, err := s.locals.Get(record.LocalPath)
	if err != nil {
		if stderrors.Is(err, tree.ErrNotExist) {
			if mutating {
				return nil, errors.NotFound(fmt.Sprintf(
					"local path %s for workspace %s does not exist", record.LocalPath, name))
			}
			// Read-only queries surface this as a needs-rebind
			// condition instead of failing.
			return b, nil
		}
		return nil, err
	}
	b.local = local

	archive, err := s.acquireArchive(record.Target)
	if err != nil {
		return nil, err
	}
	b.archive = archive

	return b, nil
}

// acquireArchive wraps provider resolution in the acquire timeout. On
// timeout no partial state has been touched.
func (s *Syncer) acquireArchive(target string) (tree.Tree, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	type outcome struct {
		t   tree.Tree
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		t, err := s.archives.GetOrLoad(ctx, target)
		done <- outcome{t: t, err: err}
	}()

	select {
	case o := <-done:
		return o.t, o.err
	case <-ctx.Done():
		return nil, errors.Timeout(fmt.Sprintf(
			"acquiring archive %s exceeded %s", target, s.timeout))
	}
}

// buildFilter returns the single active predicate for an operation:
// the explicit path scope when paths are given, the compiled ignore
// rules otherwise. An absent ignore file is treated as empty, which
// still leaves the implicit control-metadata rules in force.
func (s *Syncer) buildFilter(local tree.Tree, paths []string) (filter.Predicate, error) {
	if len(paths) > 0 {
		return filter.Scope(paths), nil
	}

	content, err := local.ReadFile(IgnoreFileName)
	if err != nil && !stderrors.Is(err, tree.ErrNotExist) {
		return nil, errors.IO(IgnoreFileName, err)
	}

	return filter.CompileIgnoreRules(string(content)).Predicate(), nil
}

// ListChanges diffs the local tree against the archive without
// mutating either side.
func (s *Syncer) ListChanges(profileID, name string, opts Options) (*ChangeReport, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	b, err := s.resolve(profileID, name, false)
	if err != nil {
		return nil, err
	}
	if b.local == nil {
		return &ChangeReport{NeedsRebind: true}, nil
	}

	pred, err := s.buildFilter(b.local, opts.Paths)
	if err != nil {
		return nil, err
	}

	entries, err := s.diff.Compute(b.local, b.archive, diff.Options{
		Shallow:        opts.Shallow,
		CompareContent: opts.CompareContent,
		Filter:         pred,
	})
	if err != nil {
		return nil, err
	}

	return &ChangeReport{Entries: entries}, nil
}

// DiffFile produces a line-level diff of one file between the local
// tree and the archive. Binary content fails with an encoding error;
// content above the size ceiling fails before it is read.
func (s *Syncer) DiffFile(profileID, name, path string) (*textdiff.Result, error) {
	b, err := s.resolve(profileID, name, false)
	if err != nil {
		return nil, err
	}
	if b.local == nil {
		return nil, errors.NotFound(fmt.Sprintf(
			"local path for workspace %s does not exist", name))
	}

	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.InvalidInput("path cannot be empty")
	}

	localContent, err := s.readForDiff(b.local, path)
	if err != nil {
		return nil, err
	}
	archiveContent, err := s.readForDiff(b.archive, path)
	if err != nil {
		return nil, err
	}
	if localContent == nil && archiveContent == nil {
		return nil, errors.NotFound(fmt.Sprintf("%s exists on neither side", path))
	}

	if guard.IsBinary(path, localContent) || guard.IsBinary(path, archiveContent) {
		return nil, errors.Encoding(path)
	}

	return textdiff.NewEngine(3).Diff(archiveContent, localContent)
}

// readForDiff loads one side of a single-file comparison. A missing
// file reads as nil so the diff shows a full addition or deletion. The
// size guard runs on the stat, before any content is read.
func (s *Syncer) readForDiff(t tree.Tree, path string) ([]byte, error) {
	info, err := t.Stat(path)
	if err != nil {
		if stderrors.Is(err, tree.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.IO(path, err)
	}
	if info.IsDir {
		return nil, errors.InvalidInput(path + " is a directory")
	}
	if info.Size > guard.MaxDiffSize {
		return nil, errors.SizeExceeded(path, info.Size, guard.MaxDiffSize)
	}

	data, err := t.ReadFile(path)
	if err != nil {
		return nil, errors.IO(path, err)
	}
	return data, nil
}

// Publish applies local changes to the archive. The diff always runs
// deep: applying a directory entry without its descendants would leave
// the archive incomplete.
func (s *Syncer) Publish(profileID, name string, opts Options) error {
	if err := opts.validate(); err != nil {
		return err
	}

	b, err := s.resolve(profileID, name, true)
	if err != nil {
		return err
	}

	pred, err := s.buildFilter(b.local, opts.Paths)
	if err != nil {
		return err
	}

	entries, err := s.diff.Compute(b.local, b.archive, diff.Options{
		Shallow:        false,
		CompareContent: true,
		Filter:         pred,
	})
	if err != nil {
		return err
	}

	result := s.apply.Apply(apply.LeftToRight, b.local, b.archive, entries)
	if result.Failed != nil {
		return errors.IO(result.Failed.Entry.Path, result.Failed)
	}

	s.logger.Info("published workspace",
		zap.String("workspace", name),
		zap.Int("entries", len(result.Applied)))
	return nil
}

// Revert restores local content from the archive, treating the
// archive as the source of truth.
func (s *Syncer) Revert(profileID, name string, opts Options) error {
	if err := opts.validate(); err != nil {
		return err
	}

	b, err := s.resolve(profileID, name, true)
	if err != nil {
		return err
	}

	pred, err := s.buildFilter(b.local, opts.Paths)
	if err != nil {
		return err
	}

	entries, err := s.diff.Compute(b.local, b.archive, diff.Options{
		Shallow:        false,
		CompareContent: true,
		Filter:         pred,
	})
	if err != nil {
		return err
	}

	result := s.apply.Apply(apply.RightToLeft, b.local, b.archive, entries)
	if result.Failed != nil {
		return errors.IO(result.Failed.Entry.Path, result.Failed)
	}

	s.logger.Info("reverted workspace",
		zap.String("workspace", name),
		zap.Int("entries", len(result.Applied)))
	return nil
}

// SetupFolder initializes a local folder from the archive without ever
// deleting or overwriting existing local content: only additions are
// applied.
func (s *Syncer) SetupFolder(profileID, name string) error {
	b, err := s.resolve(profileID, name, true)
	if err != nil {
		return err
	}

	pred, err := s.buildFilter(b.local, nil)
	if err != nil {
		return err
	}

	entries, err := s.diff.Compute(b.archive, b.local, diff.Options{
		Shallow:        false,
		CompareContent: true,
		Filter:         pred,
	})
	if err != nil {
		return err
	}

	entries = apply.AddOnly(entries)

	result := s.apply.Apply(apply.LeftToRight, b.archive, b.local, entries)
	if result.Failed != nil {
		return errors.IO(result.Failed.Entry.Path, result.Failed)
	}

	s.logger.Info("set up folder",
		zap.String("workspace", name),
		zap.Int("entries", len(result.Applied)))
	return nil
}

// Watch republishes the local tree's change notifications for one
// workspace. Closing the stream is the only cancellation primitive.
func (s *Syncer) Watch(profileID, name string) (*watch.Stream, error) {
	b, err := s.resolve(profileID, name, false)
	if err != nil {
		return nil, err
	}
	if b.local == nil {
		return nil, errors.NotFound(fmt.Sprintf(
			"local path for workspace %s does not exist", name))
	}

	return watch.NewStream(b.local, s.logger)
}

// AddIgnoreLine appends a normalized rule to the workspace's ignore
// file, collapsing duplicate blank lines. The vault is not involved.
func (s *Syncer) AddIgnoreLine(profileID, name, line string) error {
	if err := validation.ValidateProfileID(profileID); err != nil {
		return err
	}
	if err := validation.ValidateWorkspaceName(name); err != nil {
		return err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return errors.InvalidInput("ignore line cannot be empty")
	}

	record, err := s.workspaces.Get(profileID, name)
	if err != nil {
		return err
	}
	if record.LocalPath == "" {
		return errors.InvalidInput(fmt.Sprintf("workspace %s has no local path", name))
	}
	local, err := s.locals.Get(record.LocalPath)
	if err != nil {
		if stderrors.Is(err, tree.ErrNotExist) {
			return errors.NotFound(fmt.Sprintf(
				"local path %s for workspace %s does not exist", record.LocalPath, name))
		}
		return err
	}

	existing, err := local.ReadFile(IgnoreFileName)
	if err != nil && !stderrors.Is(err, tree.ErrNotExist) {
		return errors.IO(IgnoreFileName, err)
	}

	var lines []string
	for _, l := range strings.Split(string(existing), "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	lines = append(lines, filter.NormalizeRule(line))

	content := strings.Join(lines, "\n") + "\n"
	if err := local.WriteFile(IgnoreFileName, []byte(content)); err != nil {
		return errors.IO(IgnoreFileName, err)
	}

	s.logger.Info("added ignore rule",
		zap.String("workspace", name),
		zap.String("rule", line))
	return nil
}
