package ingest

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/emersion/go-mbox"
	"github.com/mikey/forensic-intel/internal/core"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

var mboxSeparator = []byte("From ")

// Ingestor implements core.Ingestor for message files, mailboxes, archives and directories
type Ingestor struct {
	logger *zap.Logger
}

// New creates an ingestor
func New(logger *zap.Logger) *Ingestor {
	return &Ingestor{logger: logger}
}

// Ingest enumerates every candidate message under path. Unreadable entries
// inside a container become items with Err set; only an unusable source is fatal.
func (i *Ingestor) Ingest(ctx context.Context, path string) ([]core.IngestItem, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: stat %s", path)
	}

	c := &collector{ctx: ctx}
	if info.IsDir() {
		err = i.walkDir(c, path)
	} else {
		err = i.ingestFile(c, path)
	}
	if err != nil {
		return nil, err
	}

	i.logger.Info("Ingested source",
		zap.String("path", path),
		zap.Int("items", len(c.items)),
		zap.Int("unreadable", c.failed))
	return c.items, nil
}

type collector struct {
	ctx    context.Context
	items  []core.IngestItem
	failed int
}

func (c *collector) add(ref string, data []byte, err error) error {
	if err != nil {
		c.failed++
	}
	c.items = append(c.items, core.IngestItem{Ref: ref, Index: len(c.items), Data: data, Err: err})
	return c.ctx.Err()
}

// Supported reports whether a file name has an ingestible extension
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".eml", ".mbox", ".zip", ".gz", ".br":
		return true
	}
	return false
}

func (i *Ingestor) walkDir(c *collector, root string) error {
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			return c.add(p, nil, eris.Wrapf(err, "ingest: walk %s", p))
		}
		if d.IsDir() || !Supported(d.Name()) {
			return nil
		}
		if err := i.ingestFile(c, p); err != nil {
			if cerr := c.ctx.Err(); cerr != nil {
				return cerr
			}
			return c.add(p, nil, err)
		}
		return nil
	})
	if err != nil {
		return eris.Wrapf(err, "ingest: walk %s", root)
	}
	return nil
}

func (i *Ingestor) ingestFile(c *collector, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		return i.ingestZip(c, path)
	case ".mbox":
		f, err := os.Open(path)
		if err != nil {
			return eris.Wrapf(err, "ingest: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		return readMbox(c, path, f)
	case ".gz", ".br":
		data, err := decompress(path)
		if err != nil {
			return err
		}
		if bytes.HasPrefix(data, mboxSeparator) {
			return readMbox(c, path, bytes.NewReader(data))
		}
		return c.add(path, data, nil)
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return eris.Wrapf(err, "ingest: read %s", path)
		}
		return c.add(path, data, nil)
	}
}

func decompress(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	var r io.Reader
	if strings.EqualFold(filepath.Ext(path), ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: gzip header %s", path)
		}
		defer zr.Close() //nolint:errcheck
		r = zr
	} else {
		r = brotli.NewReader(f)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: decompress %s", path)
	}
	return data, nil
}

func (i *Ingestor) ingestZip(c *collector, path string) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return eris.Wrapf(err, "ingest: open archive %s", path)
	}
	defer zr.Close() //nolint:errcheck

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		ref := path + ":" + f.Name
		ext := strings.ToLower(filepath.Ext(f.Name))
		if ext != ".eml" && ext != ".mbox" {
			i.logger.Debug("Skipping archive entry", zap.String("entry", ref))
			continue
		}

		data, err := readZipEntry(f)
		if err != nil {
			if err := c.add(ref, nil, err); err != nil {
				return err
			}
			continue
		}
		if ext == ".mbox" {
			err = readMbox(c, ref, bytes.NewReader(data))
		} else {
			err = c.add(ref, data, nil)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, eris.Wrapf(err, "zip: open entry %s", f.Name)
	}
	defer rc.Close() //nolint:errcheck

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, eris.Wrapf(err, "zip: read entry %s", f.Name)
	}
	return data, nil
}

// readMbox adds one item per message, referenced as ref#N counting from 1.
// A read failure is recorded as an item and ends the mailbox.
func readMbox(c *collector, ref string, r io.Reader) error {
	mr := mbox.NewReader(r)
	for n := 1; ; n++ {
		msg, err := mr.NextMessage()
		if err == io.EOF {
			return nil
		}
		itemRef := fmt.Sprintf("%s#%d", ref, n)
		if err != nil {
			return c.add(itemRef, nil, eris.Wrapf(err, "mbox: message %d", n))
		}
		data, err := io.ReadAll(msg)
		if err != nil {
			return c.add(itemRef, nil, eris.Wrapf(err, "mbox: read message %d", n))
		}
		if err := c.add(itemRef, data, nil); err != nil {
			return err
		}
	}
}
