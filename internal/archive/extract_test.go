package archive

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const messagePage = `<!DOCTYPE HTML PUBLIC "-//W3C//DTD HTML 3.2//EN">
<HTML>
 <HEAD>
   <TITLE> [dev 12] Release schedule
   </TITLE>
 </HEAD>
 <BODY BGCOLOR="#ffffff">
   <H1>[dev 12] Release schedule</H1>
    <B>Alice</B>
stray text
<A NAME="000012"></A>
<P><UL><LI>Previous message: <A HREF="000011.html">[dev 11] Kickoff</A></LI></UL>
<!--beginarticle-->
<PRE>Shipping on &lt;Friday&gt;.
</PRE>
<!--endarticle-->
</BODY>
</HTML>
`

func TestExtractBody(t *testing.T) {
	body, err := ExtractBody([]byte(messagePage))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(body, "<h1>[dev 12] Release schedule</h1>\n<b>Alice</b>"), body)
	assert.NotContains(t, body, "name=")
	assert.NotContains(t, body, "stray text")
	assert.NotContains(t, body, "<title>")
	assert.Contains(t, body, `<a href="000011.html">[dev 11] Kickoff</a>`)
	assert.Contains(t, body, "<pre>Shipping on &lt;Friday&gt;.\n</pre>")
}

func TestExtractBodyDecodesDeclaredCharset(t *testing.T) {
	page := []byte("<html><head><meta http-equiv=\"Content-Type\" content=\"text/html; charset=iso-8859-1\"></head>" +
		"<body><p>caf\xe9</p></body></html>")

	body, err := ExtractBody(page)
	require.NoError(t, err)
	assert.Equal(t, "<p>café</p>", body)
}

func TestExtractBodyWithoutBody(t *testing.T) {
	body, err := ExtractBody([]byte("plain words"))
	require.NoError(t, err)
	assert.Equal(t, "", body)
}

func TestExtractMessage(t *testing.T) {
	msg, err := ExtractMessage(strings.NewReader(messagePage))
	require.NoError(t, err)
	assert.Equal(t, "[dev 12] Release schedule", msg.Title)
	assert.Equal(t, "Shipping on <Friday>.", msg.Text)
}

func TestStripHTMLTags(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"<p>hello</p>", "hello"},
		{"<b>a</b> &amp; b", "a  & b"},
		{"no tags here", "no tags here"},
		{"", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, StripHTMLTags(tc.input), tc.input)
	}
}
