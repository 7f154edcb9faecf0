package extract

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"mime"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/mikey/forensic-intel/internal/core"
	"go.uber.org/zap"
)

var (
	errEmptyInput = errors.New("empty input")
	errNoHeaders  = errors.New("no recognizable message headers")

	msgIDPattern    = regexp.MustCompile(`<[^<>\s]+>`)
	receivedFrom    = regexp.MustCompile(`(?i)\bfrom\s+([^\s;()\[\]]+)`)
	bracketedAddr   = regexp.MustCompile(`<([^<>]+@[^<>]+)>`)
	identityHeaders = []string{"From", "To", "Date", "Subject", "Message-Id"}
)

// Extractor implements core.MetadataExtractor over RFC 5322 messages
type Extractor struct {
	logger *zap.Logger
	now    func() time.Time
	dec    *mime.WordDecoder
}

// NewExtractor creates a new metadata extractor
func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{
		logger: logger,
		now:    time.Now,
		dec:    &mime.WordDecoder{CharsetReader: charsetReader},
	}
}

// WithClock replaces the clock used for ExtractedAt
func (e *Extractor) WithClock(now func() time.Time) *Extractor {
	e.now = now
	return e
}

// Extract parses raw message bytes into a record
func (e *Extractor) Extract(raw []byte) (*core.EmailRecord, []core.Warning, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil, &core.ParseError{Err: errEmptyInput}
	}

	sum := sha256.Sum256(raw)
	hash := hex.EncodeToString(sum[:])

	msg, err := mail.ReadMessage(bytes.NewReader(stripEnvelope(raw)))
	if err != nil {
		return nil, nil, &core.ParseError{Err: fmt.Errorf("read message: %w", err)}
	}
	if !hasIdentityHeader(msg.Header) {
		return nil, nil, &core.ParseError{Err: errNoHeaders}
	}

	var warnings []core.Warning
	rec := &core.EmailRecord{
		ContentHash:   hash,
		RecipientsTo:  []string{},
		RecipientsCc:  []string{},
		RecipientsBcc: []string{},
		ExtractedAt:   e.now(),
	}

	rec.MessageID = strings.TrimSpace(msg.Header.Get("Message-Id"))
	if rec.MessageID == "" {
		rec.MessageID = "<" + hash[:32] + "@content-hash>"
		rec.MessageIDSynthesized = true
		warnings = append(warnings, core.NewWarning(core.WarnMissingField, "", "message-id missing, synthesized %s", rec.MessageID))
	}

	rec.Sender = e.parseSender(msg.Header.Get("From"))
	if rec.Sender.Address == "" {
		warnings = append(warnings, core.NewWarning(core.WarnMissingField, "", "sender missing or unparseable"))
	}
	rec.ReplyTo = e.parseAddresses(msg.Header.Get("Reply-To"))
	rec.RecipientsTo = e.parseAddresses(msg.Header.Get("To"))
	rec.RecipientsCc = e.parseAddresses(msg.Header.Get("Cc"))
	rec.RecipientsBcc = e.parseAddresses(msg.Header.Get("Bcc"))

	if dateHeader := msg.Header.Get("Date"); dateHeader == "" {
		warnings = append(warnings, core.NewWarning(core.WarnMissingField, "", "date header missing"))
	} else if sentAt, err := mail.ParseDate(dateHeader); err != nil {
		warnings = append(warnings, core.NewWarning(core.WarnMissingField, "", "unparseable date %q", dateHeader))
	} else {
		rec.SentAt = &sentAt
	}

	rec.Subject = e.decodeHeader(msg.Header.Get("Subject"))

	rec.InReplyTo = parseMessageIDs(msg.Header.Get("In-Reply-To"))
	references := parseMessageIDs(msg.Header.Get("References"))
	rec.ThreadReferences = dedupe(append(append([]string{}, rec.InReplyTo...), references...))
	rec.DeliveryPath = deliveryPath(msg.Header["Received"])
	rec.AuthSignals = authSignals(msg.Header)

	rec.Forensics = core.ForensicHeaders{
		XMailer:       strings.TrimSpace(msg.Header.Get("X-Mailer")),
		OriginatingIP: strings.Trim(strings.TrimSpace(msg.Header.Get("X-Originating-Ip")), "[]"),
		DeliveredTo:   strings.ToLower(strings.TrimSpace(msg.Header.Get("Delivered-To"))),
		ThreadDepth:   len(references),
	}
	if rec.SentAt != nil {
		hour := rec.SentAt.Hour()
		rec.Forensics.AfterHours = hour < 7 || hour > 18
		wd := rec.SentAt.Weekday()
		rec.Forensics.Weekend = wd == time.Saturday || wd == time.Sunday
	}

	walker := &partWalker{dec: e.dec}
	walker.walk(msg.Header, msg.Body, 0)
	rec.PlainTextBody = walker.body()
	rec.Attachments = walker.attachments
	if rec.Attachments == nil {
		rec.Attachments = []core.Attachment{}
	}
	warnings = append(warnings, walker.warnings...)

	e.logger.Debug("Extracted message",
		zap.String("message_id", rec.MessageID),
		zap.String("content_hash", rec.ContentHash),
		zap.Int("attachments", len(rec.Attachments)),
		zap.Int("warnings", len(warnings)))

	return rec, warnings, nil
}

func (e *Extractor) decodeHeader(s string) string {
	decoded, err := e.dec.DecodeHeader(s)
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(decoded)
}

func (e *Extractor) parseSender(header string) core.Address {
	if strings.TrimSpace(header) == "" {
		return core.Address{}
	}
	parser := mail.AddressParser{WordDecoder: e.dec}
	if list, err := parser.ParseList(header); err == nil && len(list) > 0 {
		return core.Address{Name: list[0].Name, Address: strings.ToLower(list[0].Address)}
	}
	fallback := fallbackAddresses(header)
	if len(fallback) == 0 {
		return core.Address{}
	}
	return core.Address{Address: fallback[0]}
}

func (e *Extractor) parseAddresses(header string) []string {
	if strings.TrimSpace(header) == "" {
		return []string{}
	}
	parser := mail.AddressParser{WordDecoder: e.dec}
	list, err := parser.ParseList(header)
	if err != nil {
		return fallbackAddresses(header)
	}
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, strings.ToLower(a.Address))
	}
	return out
}

// fallbackAddresses recovers addresses from a header net/mail rejects
func fallbackAddresses(header string) []string {
	out := []string{}
	for _, piece := range strings.Split(header, ",") {
		piece = strings.TrimSpace(piece)
		if m := bracketedAddr.FindStringSubmatch(piece); m != nil {
			piece = m[1]
		}
		piece = strings.Trim(piece, "<>\" ")
		if strings.Contains(piece, "@") && !strings.ContainsAny(piece, " \t") {
			out = append(out, strings.ToLower(piece))
		}
	}
	return out
}

func hasIdentityHeader(h mail.Header) bool {
	for _, key := range identityHeaders {
		if strings.TrimSpace(h.Get(key)) != "" {
			return true
		}
	}
	return false
}

// stripEnvelope drops a leading mbox "From " separator line
func stripEnvelope(raw []byte) []byte {
	if !bytes.HasPrefix(raw, []byte("From ")) {
		return raw
	}
	if i := bytes.IndexByte(raw, '\n'); i >= 0 {
		return raw[i+1:]
	}
	return raw
}

func parseMessageIDs(header string) []string {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil
	}
	ids := msgIDPattern.FindAllString(header, -1)
	if len(ids) == 0 {
		ids = strings.Fields(header)
	}
	return dedupe(ids)
}

func deliveryPath(received []string) []string {
	path := []string{}
	for _, line := range received {
		if m := receivedFrom.FindStringSubmatch(line); m != nil {
			path = append(path, strings.ToLower(m[1]))
		}
	}
	return path
}

func authSignals(h mail.Header) core.AuthSignals {
	results := strings.ToLower(strings.Join(h["Authentication-Results"], ";"))
	signals := core.AuthSignals{
		SPF:   strings.Contains(results, "spf=pass"),
		DKIM:  strings.Contains(results, "dkim=pass"),
		DMARC: strings.Contains(results, "dmarc=pass"),
	}
	if spf := strings.ToLower(strings.TrimSpace(h.Get("Received-Spf"))); strings.HasPrefix(spf, "pass") {
		signals.SPF = true
	}
	return signals
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}
