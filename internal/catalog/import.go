package catalog

import (
	"context"
	"crypto/md5" //nolint:gosec // MD5 is the digest recorded for items, not a security control
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/karrick/godirwalk"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sigscan/internal/model"
)

// KindContainer is the kind of directory items.
const KindContainer = "container"

// BlobUploader stores item binaries outside the catalog.
type BlobUploader interface {
	Put(ctx context.Context, item model.Item, r io.Reader, size int64) error
}

// ImportSummary counts what Import added.
type ImportSummary struct {
	Containers int
	Files      int
	Bytes      int64
	// Skipped counts entries that are neither directories nor regular files.
	Skipped int
}

// ImportOption configures Import.
type ImportOption func(*importer)

// WithBlobUploader stores binaries through u instead of inline.
func WithBlobUploader(u BlobUploader) ImportOption {
	return func(im *importer) {
		im.uploader = u
	}
}

// WithImportConcurrency sets how many files are analyzed at once.
func WithImportConcurrency(n int) ImportOption {
	return func(im *importer) {
		if n > 0 {
			im.concurrency = n
		}
	}
}

type importer struct {
	catalog     *Catalog
	uploader    BlobUploader
	concurrency int
}

// entry is one walked file system entry and the item built for it.
type entry struct {
	path string
	dir  bool
	item model.Item
}

// Import adds the directory tree at root to the catalog. Directories become
// container items without binary; regular files become their children with
// digest, size, MIME type, kind and extension. Nothing is added when any
// file fails.
func (c *Catalog) Import(ctx context.Context, root string, opts ...ImportOption) (ImportSummary, error) {
	im := &importer{catalog: c, concurrency: runtime.NumCPU()}
	for _, opt := range opts {
		opt(im)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("failed to resolve import root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("failed to open import root: %w", err)
	}
	if !info.IsDir() {
		return ImportSummary{}, fmt.Errorf("import root %s is not a directory", abs)
	}

	entries, skipped, err := walk(abs)
	if err != nil {
		return ImportSummary{}, err
	}

	if err := im.analyze(ctx, entries); err != nil {
		return ImportSummary{}, err
	}

	summary := ImportSummary{Skipped: skipped}
	if err := im.insert(ctx, entries, &summary); err != nil {
		return ImportSummary{}, err
	}

	c.logger.Info("import finished",
		"root", abs,
		"containers", summary.Containers,
		"files", summary.Files,
		"bytes", summary.Bytes,
		"skipped", summary.Skipped,
	)
	return summary, nil
}

// walk lists root and everything below it in sorted depth-first order and
// assigns GUIDs and parents.
func walk(root string) ([]*entry, int, error) {
	rootName := filepath.Base(root)
	guids := map[string]string{}
	var (
		entries []*entry
		skipped int
	)

	add := func(path string, dir bool) error {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		names := []string{rootName}
		if rel != "." {
			names = append(names, strings.Split(filepath.ToSlash(rel), "/")...)
		}

		e := &entry{path: path, dir: dir}
		e.item = model.Item{
			GUID:      uuid.NewString(),
			Name:      names[len(names)-1],
			PathNames: names,
		}
		if path != root {
			e.item.ParentGUID = guids[filepath.Dir(path)]
		}
		if dir {
			e.item.Kind = KindContainer
			guids[path] = e.item.GUID
		}
		entries = append(entries, e)
		return nil
	}

	err := godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			switch {
			case de.IsDir():
				return add(path, true)
			case de.IsRegular():
				return add(path, false)
			default:
				skipped++
				return nil
			}
		},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return entries, skipped, nil
}

// analyze fills in the binary metadata of every file entry and uploads the
// binaries when a blob uploader is configured.
func (im *importer) analyze(ctx context.Context, entries []*entry) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(im.concurrency)

	for _, e := range entries {
		if e.dir {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := describeFile(e); err != nil {
				return err
			}
			if im.uploader != nil {
				return im.upload(ctx, e)
			}
			return nil
		})
	}
	return g.Wait()
}

func (im *importer) upload(ctx context.Context, e *entry) error {
	f, err := os.Open(e.path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", e.path, err)
	}
	defer f.Close()

	if err := im.uploader.Put(ctx, e.item, f, e.item.AuditedSize); err != nil {
		return fmt.Errorf("failed to upload %s: %w", e.path, err)
	}
	return nil
}

// describeFile computes digest, size and type information of a file.
func describeFile(e *entry) error {
	f, err := os.Open(e.path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", e.path, err)
	}
	defer f.Close()

	hash := md5.New() //nolint:gosec // digest, not a security control
	size, err := io.Copy(hash, f)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", e.path, err)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind %s: %w", e.path, err)
	}
	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		return fmt.Errorf("failed to detect type of %s: %w", e.path, err)
	}

	e.item.MD5 = hex.EncodeToString(hash.Sum(nil))
	e.item.AuditedSize = size
	e.item.MimeType = baseMediaType(mtype.String())
	e.item.Kind = kindOf(mtype)
	e.item.Extension = extensionOf(mtype, e.item.Name)
	e.item.HasBinary = true
	return nil
}

// insert writes all entries in walk order in one transaction.
func (im *importer) insert(ctx context.Context, entries []*entry, summary *ImportSummary) error {
	tx, err := im.catalog.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	for _, e := range entries {
		if e.dir {
			if err := insertItem(ctx, tx, e.item, nil); err != nil {
				return err
			}
			summary.Containers++
			continue
		}

		var content []byte
		if im.uploader == nil {
			content, err = os.ReadFile(e.path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", e.path, err)
			}
			if content == nil {
				content = []byte{}
			}
		}
		if err := insertItem(ctx, tx, e.item, content); err != nil {
			return err
		}
		summary.Files++
		summary.Bytes += e.item.AuditedSize
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}
	return nil
}

func baseMediaType(s string) string {
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// kindFamilies maps MIME types to item kinds. Entries are checked against
// the detected type and its parents.
var kindFamilies = []struct {
	kind  string
	mimes []string
}{
	{"executable", []string{
		"application/vnd.microsoft.portable-executable", "application/x-msdownload",
		"application/x-executable", "application/x-elf", "application/x-mach-binary",
		"application/x-sharedlib", "application/x-object", "application/java-archive",
	}},
	{"email", []string{"message/rfc822", "application/vnd.ms-outlook"}},
	{"spreadsheet", []string{
		"application/vnd.ms-excel", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.oasis.opendocument.spreadsheet", "text/csv",
	}},
	{"presentation", []string{
		"application/vnd.ms-powerpoint", "application/vnd.openxmlformats-officedocument.presentationml.presentation",
		"application/vnd.oasis.opendocument.presentation",
	}},
	{"document", []string{
		"application/pdf", "application/msword", "application/rtf",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.oasis.opendocument.text", "text/html",
	}},
	{"archive", []string{
		"application/zip", "application/x-7z-compressed", "application/x-rar-compressed",
		"application/gzip", "application/x-tar", "application/x-bzip2", "application/x-xz",
	}},
}

func kindOf(m *mimetype.MIME) string {
	for _, family := range kindFamilies {
		for _, candidate := range family.mimes {
			if m.Is(candidate) {
				return family.kind
			}
		}
	}

	base := baseMediaType(m.String())
	switch {
	case strings.HasPrefix(base, "image/"):
		return "image"
	case strings.HasPrefix(base, "audio/"), strings.HasPrefix(base, "video/"):
		return "multimedia"
	case strings.HasPrefix(base, "text/"):
		return "document"
	}

	for p := m.Parent(); p != nil; p = p.Parent() {
		if strings.HasPrefix(p.String(), "text/plain") {
			return "document"
		}
	}
	return "unrecognised"
}

// extensionOf prefers the extension implied by the content over the file
// name.
func extensionOf(m *mimetype.MIME, name string) string {
	if ext := strings.TrimPrefix(m.Extension(), "."); ext != "" {
		return ext
	}
	return strings.TrimPrefix(filepath.Ext(name), ".")
}
