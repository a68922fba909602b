package translator

import (
	"github.com/secmon-lab/taskrelay/pkg/domain/types"
)

// Entry describes one action the model may emit
type Entry struct {
	Integration string
	Action      string
	Webhook     string
	Description string
	// Args maps argument name to a short description
	Args map[string]string
}

// DefaultCatalog lists the built-in local actions and the remote Notion
// workflow shipped with the reference n8n setup.
func DefaultCatalog() []Entry {
	return []Entry{
		{
			Integration: "terminal",
			Action:      "execute",
			Webhook:     types.ChannelTerminal,
			Description: "Run a shell command on this machine",
			Args: map[string]string{
				"command":     "shell command line to run",
				"working_dir": "optional directory to run in, created when missing",
			},
		},
		{
			Integration: "file",
			Action:      "modify",
			Webhook:     types.ChannelFile,
			Description: "Create or overwrite a local file",
			Args: map[string]string{
				"filepath": "path of the file to write",
				"content":  "full new content of the file",
			},
		},
		{
			Integration: "file",
			Action:      "open",
			Webhook:     types.ChannelFile,
			Description: "Open an existing local file in the editor",
			Args: map[string]string{
				"filepath": "path of the file to open",
			},
		},
		{
			Integration: "notion",
			Action:      "create_page",
			Webhook:     "NOTION",
			Description: "Create a Notion page",
			Args: map[string]string{
				"page_name":    "title of the new page",
				"page_content": "body of the new page",
			},
		},
		{
			Integration: "notion",
			Action:      "search_page",
			Webhook:     "NOTION",
			Description: "Search Notion pages",
			Args: map[string]string{
				"query": "search text",
			},
		},
		{
			Integration: "notion",
			Action:      "modify_page",
			Webhook:     "NOTION",
			Description: "Replace the content of a Notion page",
			Args: map[string]string{
				"page_url":    "URL of the page",
				"new_content": "new body of the page",
			},
		},
	}
}
