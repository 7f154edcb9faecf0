package extract

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/mikey/forensic-intel/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const simpleMessage = `Received: from mx1.relay.example (mx1.relay.example [10.0.0.1]) by mail.example.com; Tue, 5 Mar 2024 09:15:10 +1100
Received: from outbound.agency.example.com by mx1.relay.example; Tue, 5 Mar 2024 09:15:05 +1100
Authentication-Results: mail.example.com; spf=pass smtp.mailfrom=agency.example.com; dkim=pass header.d=agency.example.com; dmarc=fail
Message-ID: <notice-1@agency.example.com>
Date: Tue, 5 Mar 2024 09:15:00 +1100
From: "Property Agent" <Agent@Agency.example.com>
To: tenant@example.com, Other <second@example.com>
Cc: tenant@example.com
Subject: =?UTF-8?B?Tm90aWNl?=
X-Mailer: Outlook 16.0
Content-Type: text/plain; charset=utf-8

Please respond urgently.
`

func newTestExtractor(at time.Time) *Extractor {
	return NewExtractor(zap.NewNop()).WithClock(func() time.Time { return at })
}

func TestExtract_Headers(t *testing.T) {
	rec, warnings, err := newTestExtractor(time.Now()).Extract([]byte(simpleMessage))
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, "<notice-1@agency.example.com>", rec.MessageID)
	assert.Equal(t, core.Address{Name: "Property Agent", Address: "agent@agency.example.com"}, rec.Sender)
	assert.Equal(t, []string{"tenant@example.com", "second@example.com"}, rec.RecipientsTo)
	assert.Equal(t, []string{"tenant@example.com"}, rec.RecipientsCc)
	assert.Equal(t, "Notice", rec.Subject)
	assert.Equal(t, "Please respond urgently.", rec.PlainTextBody)
	assert.Equal(t, []string{"mx1.relay.example", "outbound.agency.example.com"}, rec.DeliveryPath)
	assert.Equal(t, core.AuthSignals{SPF: true, DKIM: true, DMARC: false}, rec.AuthSignals)
	assert.Equal(t, "Outlook 16.0", rec.Forensics.XMailer)
	require.NotNil(t, rec.SentAt)
	assert.False(t, rec.Forensics.AfterHours)
	assert.Len(t, rec.ContentHash, 64)
}

func TestExtract_Idempotent(t *testing.T) {
	first, _, err := newTestExtractor(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)).Extract([]byte(simpleMessage))
	require.NoError(t, err)
	second, _, err := newTestExtractor(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)).Extract([]byte(simpleMessage))
	require.NoError(t, err)

	assert.Equal(t, first.ContentHash, second.ContentHash)
	if diff := cmp.Diff(first, second, cmpopts.IgnoreFields(core.EmailRecord{}, "ExtractedAt")); diff != "" {
		t.Fatalf("records differ (-first +second):\n%s", diff)
	}
}

func TestExtract_MissingDateAndMessageID(t *testing.T) {
	raw := "From: a@example.com\nTo: b@example.com\nSubject: undated\n\nbody\n"
	rec, warnings, err := newTestExtractor(time.Now()).Extract([]byte(raw))
	require.NoError(t, err)

	assert.Nil(t, rec.SentAt)
	assert.True(t, rec.MessageIDSynthesized)
	assert.Equal(t, "<"+rec.ContentHash[:32]+"@content-hash>", rec.MessageID)

	kinds := map[core.WarningKind]int{}
	for _, w := range warnings {
		kinds[w.Kind]++
	}
	assert.Equal(t, 2, kinds[core.WarnMissingField])
}

func TestExtract_UnparseableDate(t *testing.T) {
	raw := "From: a@example.com\nDate: sometime last week\nSubject: x\n\nbody\n"
	rec, warnings, err := newTestExtractor(time.Now()).Extract([]byte(raw))
	require.NoError(t, err)
	assert.Nil(t, rec.SentAt)
	require.NotEmpty(t, warnings)
	assert.Contains(t, warnings[len(warnings)-1].Message, "sometime last week")
}

func TestExtract_NotAMessage(t *testing.T) {
	cases := map[string]string{
		"empty":      "   \n",
		"prose":      "this is not an email at all\nreally not\n",
		"no headers": "X-Random: value\n\nbody\n",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := newTestExtractor(time.Now()).Extract([]byte(raw))
			var pe *core.ParseError
			require.True(t, errors.As(err, &pe), "expected ParseError, got %v", err)
		})
	}
}

func TestExtract_MultipartWithAttachments(t *testing.T) {
	raw := strings.Join([]string{
		"From: agent@agency.example.com",
		"To: tenant@example.com",
		"Subject: Documents",
		"Message-ID: <docs@agency.example.com>",
		"MIME-Version: 1.0",
		`Content-Type: multipart/mixed; boundary="outer"`,
		"",
		"--outer",
		`Content-Type: multipart/alternative; boundary="inner"`,
		"",
		"--inner",
		"Content-Type: text/plain; charset=iso-8859-1",
		"Content-Transfer-Encoding: quoted-printable",
		"",
		"Caf=E9 meeting",
		"--inner",
		"Content-Type: text/html",
		"",
		"<p>Caf&eacute; meeting</p>",
		"--inner--",
		"--outer",
		`Content-Type: application/pdf; name="notice.pdf"`,
		"Content-Disposition: attachment; filename=\"notice.pdf\"",
		"Content-Transfer-Encoding: base64",
		"",
		"SGVsbG8gUERG",
		"--outer",
		`Content-Type: application/octet-stream; name="broken.bin"`,
		"Content-Transfer-Encoding: base64",
		"",
		"!!!not base64!!!",
		"--outer--",
		"",
	}, "\n")

	rec, warnings, err := newTestExtractor(time.Now()).Extract([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, "Café meeting", rec.PlainTextBody)
	require.Len(t, rec.Attachments, 2)

	pdf := rec.Attachments[0]
	assert.Equal(t, "notice.pdf", pdf.Filename)
	assert.Equal(t, "application/pdf", pdf.MimeType)
	assert.Equal(t, int64(len("Hello PDF")), pdf.Size)
	assert.False(t, pdf.Partial())
	assert.NotEmpty(t, pdf.SHA256)

	broken := rec.Attachments[1]
	assert.Equal(t, "broken.bin", broken.Filename)
	assert.True(t, broken.Partial())
	assert.Empty(t, broken.SHA256)

	var attachmentWarnings int
	for _, w := range warnings {
		if w.Kind == core.WarnAttachment {
			attachmentWarnings++
		}
	}
	assert.Equal(t, 1, attachmentWarnings)
}

func TestExtract_UnknownCharsetReplaces(t *testing.T) {
	raw := "From: a@example.com\nSubject: x\nContent-Type: text/plain; charset=x-made-up\n\nok \xff\xfe done\n"
	rec, warnings, err := newTestExtractor(time.Now()).Extract([]byte(raw))
	require.NoError(t, err)
	assert.Contains(t, rec.PlainTextBody, "�")
	assert.Contains(t, rec.PlainTextBody, "done")
	assert.NotEmpty(t, warnings)
}

func TestExtract_ThreadReferences(t *testing.T) {
	raw := strings.Join([]string{
		"From: tenant@example.com",
		"To: agent@agency.example.com",
		"Subject: Re: Notice",
		"Date: Tue, 5 Mar 2024 23:47:00 +1100",
		"In-Reply-To: <notice-1@agency.example.com>",
		"References: <root@agency.example.com> <notice-1@agency.example.com>",
		"",
		"reply",
	}, "\n")
	rec, _, err := newTestExtractor(time.Now()).Extract([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, []string{"<notice-1@agency.example.com>"}, rec.InReplyTo)
	assert.Equal(t, []string{"<notice-1@agency.example.com>", "<root@agency.example.com>"}, rec.ThreadReferences)
	assert.Equal(t, 2, rec.Forensics.ThreadDepth)
	assert.True(t, rec.Forensics.AfterHours)
}

func TestExtract_EnvelopeLineAndBadAddresses(t *testing.T) {
	raw := "From sender@example.com Tue Mar  5 09:15:00 2024\nFrom: sender@example.com\nTo: bad address <first@example.com>, \"unterminated <second@example.com>\nSubject: x\n\nbody\n"
	rec, _, err := newTestExtractor(time.Now()).Extract([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "sender@example.com", rec.Sender.Address)
	assert.Equal(t, []string{"first@example.com", "second@example.com"}, rec.RecipientsTo)
}
