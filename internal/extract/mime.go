package extract

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"strings"
	"unicode/utf8"

	"github.com/mikey/forensic-intel/internal/core"
	"golang.org/x/text/encoding/htmlindex"
)

// maxPartDepth bounds multipart nesting
const maxPartDepth = 12

type headerGetter interface {
	Get(key string) string
}

// partWalker collects text bodies and attachment metadata from a MIME tree
type partWalker struct {
	dec         *mime.WordDecoder
	texts       []string
	attachments []core.Attachment
	warnings    []core.Warning
}

func (w *partWalker) warn(kind core.WarningKind, format string, args ...interface{}) {
	w.warnings = append(w.warnings, core.NewWarning(kind, "", format, args...))
}

func (w *partWalker) body() string {
	return strings.Join(w.texts, "\n")
}

func (w *partWalker) walk(h headerGetter, r io.Reader, depth int) {
	if depth > maxPartDepth {
		w.warn(core.WarnDecode, "multipart nesting deeper than %d ignored", maxPartDepth)
		return
	}

	contentType := h.Get("Content-Type")
	mediaType, params := "text/plain", map[string]string{}
	if contentType != "" {
		mt, p, err := mime.ParseMediaType(contentType)
		if err != nil {
			w.warn(core.WarnDecode, "unparseable content type %q, treating as text/plain", contentType)
		} else {
			mediaType, params = mt, p
		}
	}

	filename := w.filename(h, params)
	disposition, _, _ := mime.ParseMediaType(h.Get("Content-Disposition"))

	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		boundary := params["boundary"]
		if boundary == "" {
			w.warn(core.WarnDecode, "multipart part without boundary, treating as text")
			w.text(h, r, params["charset"])
			return
		}
		mr := multipart.NewReader(r, boundary)
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				return
			}
			if err != nil {
				w.warn(core.WarnDecode, "multipart read stopped: %v", err)
				return
			}
			w.walk(part.Header, part, depth+1)
		}
	case disposition == "attachment" || filename != "" || mediaType == "message/rfc822":
		w.attachment(h, r, mediaType, filename)
	case mediaType == "text/plain":
		w.text(h, r, params["charset"])
	default:
		_, _ = io.Copy(io.Discard, r)
	}
}

func (w *partWalker) filename(h headerGetter, params map[string]string) string {
	name := ""
	if _, dp, err := mime.ParseMediaType(h.Get("Content-Disposition")); err == nil {
		name = dp["filename"]
	}
	if name == "" {
		name = params["name"]
	}
	if decoded, err := w.dec.DecodeHeader(name); err == nil {
		name = decoded
	}
	return strings.TrimSpace(name)
}

func (w *partWalker) text(h headerGetter, r io.Reader, charset string) {
	raw, err := io.ReadAll(transferDecoder(h, r))
	if err != nil {
		w.warn(core.WarnDecode, "text part partially decoded: %v", err)
	}
	text := w.decodeCharset(raw, charset)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	w.texts = append(w.texts, strings.TrimRight(text, "\n"))
}

func (w *partWalker) decodeCharset(raw []byte, charset string) string {
	cs := strings.ToLower(strings.TrimSpace(charset))
	switch cs {
	case "", "utf-8", "utf8", "us-ascii", "ascii":
		return toValidUTF8(raw, w)
	}

	enc, err := htmlindex.Get(cs)
	if err != nil {
		w.warn(core.WarnDecode, "unknown charset %q, replacing undecodable bytes", charset)
		return toValidUTF8(raw, w)
	}
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		w.warn(core.WarnDecode, "charset %q decode failed: %v", charset, err)
		return toValidUTF8(raw, w)
	}
	return toValidUTF8(decoded, w)
}

func (w *partWalker) attachment(h headerGetter, r io.Reader, mediaType, filename string) {
	if filename == "" && mediaType == "message/rfc822" {
		filename = "attached-message.eml"
	}
	att := core.Attachment{Filename: filename, MimeType: mediaType}

	data, err := io.ReadAll(transferDecoder(h, r))
	att.Size = int64(len(data))
	if err != nil {
		att.Error = err.Error()
		w.warn(core.WarnAttachment, "attachment %q unreadable: %v", filename, err)
	} else {
		sum := sha256.Sum256(data)
		att.SHA256 = hex.EncodeToString(sum[:])
	}
	w.attachments = append(w.attachments, att)
}

// transferDecoder undoes Content-Transfer-Encoding. multipart.Reader already
// strips quoted-printable from parts, so this mostly matters for base64 and
// for single-part messages.
func transferDecoder(h headerGetter, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(h.Get("Content-Transfer-Encoding"))) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}

func toValidUTF8(b []byte, w *partWalker) string {
	if utf8.Valid(b) {
		return string(b)
	}
	w.warn(core.WarnDecode, "invalid UTF-8 bytes replaced")
	return strings.ToValidUTF8(string(b), "\uFFFD")
}

// charsetReader lets mime.WordDecoder handle any charset known to x/text
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(strings.ToLower(charset))
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", charset, err)
	}
	return enc.NewDecoder().Reader(input), nil
}
