package dto

// Wire shapes are field-exact: clients key on ok/error plus the documented
// payload fields.

type SendRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Body string `json:"body"`
}

type SendResponse struct {
	OK bool   `json:"ok"`
	ID string `json:"id"`
	Ts int64  `json:"ts"`
}

type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

type Conversation struct {
	Other    string `json:"other"`
	LastBody string `json:"lastBody"`
	LastTs   int64  `json:"lastTs"`
}

type ConversationList struct {
	OK            bool           `json:"ok"`
	Conversations []Conversation `json:"conversations"`
}

type ThreadMessage struct {
	ID   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
	Body string `json:"body"`
	Ts   int64  `json:"ts"`
}

type ThreadResponse struct {
	OK       bool            `json:"ok"`
	Messages []ThreadMessage `json:"messages"`
}

type NotifyRequest struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Secret string `json:"secret"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}
