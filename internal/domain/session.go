package domain

import "time"

// Snapshot is the live view of a session replayed to a joining connection.
type Snapshot struct {
	Exists     bool
	LegacyCode *string
	Files      map[string]string
}

// Session is a persisted collaboration session.
type Session struct {
	SessionID    string    `json:"sessionId"`
	Creator      string    `json:"creator"`
	Participants []string  `json:"participants"`
	CreatedAt    time.Time `json:"createdAt"`
}

// File is a persisted file of a session. Names are unique per session.
type File struct {
	SessionID      string    `json:"sessionId"`
	Name           string    `json:"name"`
	Content        string    `json:"content"`
	Language       Language  `json:"language"`
	CreatedBy      string    `json:"createdBy"`
	LastModifiedBy string    `json:"lastModifiedBy"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// CodeVersion is one entry of a session's code history.
type CodeVersion struct {
	Code      string    `json:"code"`
	Timestamp time.Time `json:"timestamp"`
}

// CodeDocument is the single-buffer code of a session plus its history.
type CodeDocument struct {
	SessionID      string        `json:"sessionId"`
	Code           string        `json:"code"`
	VersionHistory []CodeVersion `json:"versionHistory"`
}

// LanguageForFile infers a language tag from a file extension.
func LanguageForFile(name string) Language {
	for i := len(name) - 1; i >= 0 && name[i] != '/'; i-- {
		if name[i] != '.' {
			continue
		}
		switch name[i+1:] {
		case "py":
			return LangPython
		case "js", "mjs", "cjs":
			return LangJavaScript
		case "c", "h":
			return LangC
		case "cpp", "cc", "cxx", "hpp":
			return LangCpp
		case "java":
			return LangJava
		}
		break
	}
	return ""
}
