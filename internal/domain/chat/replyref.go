package chat

import "strings"

const (
	replyMarker    = ">>"
	replySeparator = "\n\n"

	// SnippetLimit caps the quoted preview inside a reply header, in runes.
	SnippetLimit = 80
)

// ReplyRef is the decoded form of the optional reply header carried at the
// head of a message body. A body without a header decodes to
// {IsReply: false, MainText: body} verbatim.
type ReplyRef struct {
	IsReply  bool
	Author   string
	Snippet  string
	MainText string
}

// EncodeReply builds a body that quotes target and carries newText.
// The snippet is taken from the target's decoded main text, never from its
// own reply header, so quoted headers cannot nest. Internal whitespace in
// the snippet is collapsed to single spaces.
func EncodeReply(target Message, newText string) string {
	snippet := collapseWhitespace(DecodeReply(target.Body).MainText)
	snippet = truncateRunes(snippet, SnippetLimit)
	return replyMarker + " " + target.From + ": " + snippet + replySeparator + newText
}

// DecodeReply splits body into its reply header and main text. The marker
// must sit at position 0 and a blank-line separator must follow; a body
// that merely contains the marker sequence is not a reply.
func DecodeReply(body string) ReplyRef {
	if !strings.HasPrefix(body, replyMarker+" ") {
		return ReplyRef{MainText: body}
	}
	sep := strings.Index(body, replySeparator)
	if sep < 0 {
		return ReplyRef{MainText: body}
	}
	header := body[len(replyMarker)+1 : sep]
	author, snippet, ok := strings.Cut(header, ": ")
	if !ok || author == "" {
		return ReplyRef{MainText: body}
	}
	return ReplyRef{
		IsReply:  true,
		Author:   author,
		Snippet:  snippet,
		MainText: body[sep+len(replySeparator):],
	}
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
