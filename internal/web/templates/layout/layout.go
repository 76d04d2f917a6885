// Package layout holds the page shell shared by every web page.
package layout

import "github.com/mcoot/quill/internal/model"

// FlashMessage is a one-shot notice shown at the top of the next page
type FlashMessage struct {
	Type    string // success, error, info
	Message string
}

// PageData is common to every page
type PageData struct {
	Title    string
	Identity *model.Identity // nil when anonymous
	Flash    *FlashMessage
}

// DisplayName falls back to a placeholder for identities without a name
func DisplayName(identity *model.Identity) string {
	if identity == nil || identity.DisplayName == "" {
		return "Anonymous"
	}
	return identity.DisplayName
}

func documentTitle(title string) string {
	if title == "" {
		return "Quill"
	}
	return title + " | Quill"
}
