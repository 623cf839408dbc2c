package server

import (
	tutor "github.com/haowjy/meridian-tutor"
)

// Message types exchanged over the WebSocket and the NDJSON stream.
const (
	TypeExplain  = "explain"
	TypeCancel   = "cancel"
	TypeSnapshot = "snapshot"
	TypeDone     = "done"
	TypeError    = "error"
)

// ClientMessage is sent by the browser. Only explain carries a payload.
// ClientID is an opaque nonce chosen by the client; every reply to that
// explain echoes it, so a page can tell its latest submission apart from
// output of a superseded one that was already on the wire.
type ClientMessage struct {
	Type     string `json:"type"`
	ClientID string `json:"client_id,omitempty"`
	Language string `json:"language"`
	Model    string `json:"model"`
	Code     string `json:"code"`
	Question string `json:"question"`
}

// ServerMessage is one snapshot, completion or error notice.
type ServerMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
	ClientID  string `json:"client_id,omitempty"`
	Index     *int   `json:"index,omitempty"`
	Fragment  string `json:"fragment,omitempty"`
	Text      string `json:"text"`
	Kind      string `json:"kind,omitempty"`
	Message   string `json:"message,omitempty"`
}

func snapshotMessage(requestID string, snap tutor.Snapshot) ServerMessage {
	index := snap.Index
	return ServerMessage{
		Type:      TypeSnapshot,
		RequestID: requestID,
		Index:     &index,
		Fragment:  snap.Fragment,
		Text:      snap.Text,
	}
}

func doneMessage(requestID, text string) ServerMessage {
	return ServerMessage{Type: TypeDone, RequestID: requestID, Text: text}
}

// errorMessage carries the partial text so the UI can keep it visible.
func errorMessage(requestID string, err error, partial string) ServerMessage {
	return ServerMessage{
		Type:      TypeError,
		RequestID: requestID,
		Kind:      tutor.ErrorKind(err),
		Message:   err.Error(),
		Text:      partial,
	}
}

// toRequest turns a client payload into an ExplanationRequest. An unknown
// language is passed through so validation reports it; an empty model
// selects the server default.
func (s *Server) toRequest(msg ClientMessage) tutor.ExplanationRequest {
	language, ok := tutor.ParseLanguage(msg.Language)
	if !ok {
		language = tutor.Language(msg.Language)
	}

	model := s.defaultModel
	if msg.Model != "" {
		model = tutor.ParseProviderID(msg.Model)
	}

	return tutor.ExplanationRequest{
		Language:         language,
		Code:             msg.Code,
		FollowUpQuestion: msg.Question,
		Model:            model,
	}
}
