package realtime

import "encoding/json"

// Event names on the wire.
const (
	EventJoinSession        = "joinSession"
	EventCode               = "code"
	EventFileStates         = "fileStates"
	EventFileContentChanged = "fileContentChanged"
	EventUserTyping         = "userTyping"
	EventUserStoppedTyping  = "userStoppedTyping"
	EventFileCreated        = "fileCreated"
	EventFileDeleted        = "fileDeleted"
	EventFileRenamed        = "fileRenamed"
	EventChat               = "chat"
)

// Message is one frame on the realtime channel.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// inbound is a frame as read from a client, with its payload left raw.
type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// CodeEdit is the payload of an inbound "code" or "fileContentChanged" event.
type CodeEdit struct {
	SessionID string `json:"sessionId"`
	Code      string `json:"code"`
	Content   string `json:"content"`
	FileName  string `json:"fileName"`
	UserName  string `json:"userName"`
	// Name is the sender field clients put on "code" events.
	Name string `json:"name"`
}

func (e CodeEdit) sender() string {
	if e.UserName != "" {
		return e.UserName
	}
	return e.Name
}

// Typing is the payload of typing indicator events.
type Typing struct {
	SessionID string `json:"sessionId"`
	UserName  string `json:"userName"`
}

// FileCreated is the payload of an inbound "fileCreated" event.
type FileCreated struct {
	SessionID string `json:"sessionId"`
	FileName  string `json:"fileName"`
	Language  string `json:"language"`
	UserName  string `json:"userName"`
}

// FileDeleted is the payload of an inbound "fileDeleted" event.
type FileDeleted struct {
	SessionID string `json:"sessionId"`
	FileName  string `json:"fileName"`
	UserName  string `json:"userName"`
}

// FileRenamed is the payload of an inbound "fileRenamed" event.
type FileRenamed struct {
	SessionID   string `json:"sessionId"`
	OldFileName string `json:"oldFileName"`
	NewFileName string `json:"newFileName"`
	UserName    string `json:"userName"`
}

// Chat is the payload of a "chat" event.
type Chat struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
	Name      string `json:"name"`
	Type      string `json:"type"`
}

// Outbound payloads.

type fileChangeOut struct {
	SessionID string `json:"sessionId"`
	FileName  string `json:"fileName"`
	Content   string `json:"content"`
	UserName  string `json:"userName"`
}

type legacyCodeOut struct {
	SessionID string `json:"sessionId"`
	FileName  string `json:"fileName"`
	Code      string `json:"code"`
	UserName  string `json:"userName"`
}

type typingOut struct {
	UserName string `json:"userName"`
}

type fileCreatedOut struct {
	FileName  string `json:"fileName"`
	Language  string `json:"language"`
	CreatedBy string `json:"createdBy"`
}

type fileDeletedOut struct {
	FileName  string `json:"fileName"`
	DeletedBy string `json:"deletedBy"`
}

type fileRenamedOut struct {
	OldFileName string `json:"oldFileName"`
	NewFileName string `json:"newFileName"`
	RenamedBy   string `json:"renamedBy"`
}

type chatOut struct {
	Message string `json:"message"`
	Name    string `json:"name"`
	Type    string `json:"type"`
}
