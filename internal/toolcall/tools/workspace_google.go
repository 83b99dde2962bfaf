package tools

import (
	"fmt"
	"strings"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/docs/v1"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
	"google.golang.org/api/people/v1"
	"google.golang.org/api/sheets/v4"
	"google.golang.org/api/tasks/v1"

	"github.com/relaycore/agentcore/internal/toolcall"
)

// googleClientOptions resolves service-account credentials the same way
// the teacher's internal/platform/gcp/creds.go does, generalized from a
// GCS-only concern to every Workspace API family.
func googleClientOptions(credentialsJSON string) []option.ClientOption {
	credentialsJSON = strings.TrimSpace(credentialsJSON)
	if credentialsJSON == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsJSON([]byte(credentialsJSON))}
}

// GmailListTool implements gmail_list{query?, maxResults?}.
type GmailListTool struct{ credentialsJSON string }

func NewGmailListTool(credentialsJSON string) *GmailListTool {
	return &GmailListTool{credentialsJSON: credentialsJSON}
}

func (t *GmailListTool) Name() string                                 { return "gmail_list" }
func (t *GmailListTool) Validate(params map[string]interface{}) error { return nil }

func (t *GmailListTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	svc, err := gmail.NewService(ctx.Ctx, googleClientOptions(t.credentialsJSON)...)
	if err != nil {
		return nil, fmt.Errorf("execution: gmail service: %w", err)
	}
	query, _ := call.Parameters["query"].(string)
	call_ := svc.Users.Messages.List("me")
	if query != "" {
		call_ = call_.Q(query)
	}
	if n, ok := call.Parameters["maxResults"].(float64); ok && n > 0 {
		call_ = call_.MaxResults(int64(n))
	}
	resp, err := call_.Do()
	if err != nil {
		return nil, fmt.Errorf("execution: %w", err)
	}
	ids := make([]string, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		ids = append(ids, m.Id)
	}
	return map[string]interface{}{"messageIds": ids, "resultSizeEstimate": resp.ResultSizeEstimate}, nil
}

// GmailSendTool implements gmail_send{to, subject, body}.
type GmailSendTool struct{ credentialsJSON string }

func NewGmailSendTool(credentialsJSON string) *GmailSendTool {
	return &GmailSendTool{credentialsJSON: credentialsJSON}
}

func (t *GmailSendTool) Name() string { return "gmail_send" }

func (t *GmailSendTool) Validate(params map[string]interface{}) error {
	for _, f := range []string{"to", "subject", "body"} {
		if _, err := requireString(params, f); err != nil {
			return err
		}
	}
	return nil
}

func (t *GmailSendTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	svc, err := gmail.NewService(ctx.Ctx, googleClientOptions(t.credentialsJSON)...)
	if err != nil {
		return nil, fmt.Errorf("execution: gmail service: %w", err)
	}
	to, _ := call.Parameters["to"].(string)
	subject, _ := call.Parameters["subject"].(string)
	body, _ := call.Parameters["body"].(string)

	raw := fmt.Sprintf("To: %s\r\nSubject: %s\r\n\r\n%s", to, subject, body)
	msg := &gmail.Message{Raw: base64URLEncode(raw)}

	sent, err := svc.Users.Messages.Send("me", msg).Do()
	if err != nil {
		return nil, fmt.Errorf("execution: %w", err)
	}
	return map[string]interface{}{"id": sent.Id, "threadId": sent.ThreadId}, nil
}

// DriveListTool implements drive_list{query?}.
type DriveListTool struct{ credentialsJSON string }

func NewDriveListTool(credentialsJSON string) *DriveListTool {
	return &DriveListTool{credentialsJSON: credentialsJSON}
}

func (t *DriveListTool) Name() string                                 { return "drive_list" }
func (t *DriveListTool) Validate(params map[string]interface{}) error { return nil }

func (t *DriveListTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	svc, err := drive.NewService(ctx.Ctx, googleClientOptions(t.credentialsJSON)...)
	if err != nil {
		return nil, fmt.Errorf("execution: drive service: %w", err)
	}
	query, _ := call.Parameters["query"].(string)
	call_ := svc.Files.List().Fields("files(id, name, mimeType)")
	if query != "" {
		call_ = call_.Q(query)
	}
	resp, err := call_.Do()
	if err != nil {
		return nil, fmt.Errorf("execution: %w", err)
	}
	files := make([]map[string]interface{}, 0, len(resp.Files))
	for _, f := range resp.Files {
		files = append(files, map[string]interface{}{"id": f.Id, "name": f.Name, "mimeType": f.MimeType})
	}
	return map[string]interface{}{"files": files}, nil
}

// DocsReadTool implements docs_read{documentId}.
type DocsReadTool struct{ credentialsJSON string }

func NewDocsReadTool(credentialsJSON string) *DocsReadTool {
	return &DocsReadTool{credentialsJSON: credentialsJSON}
}

func (t *DocsReadTool) Name() string { return "docs_read" }

func (t *DocsReadTool) Validate(params map[string]interface{}) error {
	_, err := requireString(params, "documentId")
	return err
}

func (t *DocsReadTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	svc, err := docs.NewService(ctx.Ctx, googleClientOptions(t.credentialsJSON)...)
	if err != nil {
		return nil, fmt.Errorf("execution: docs service: %w", err)
	}
	documentID, _ := call.Parameters["documentId"].(string)
	doc, err := svc.Documents.Get(documentID).Do()
	if err != nil {
		return nil, fmt.Errorf("execution: %w", err)
	}
	return map[string]interface{}{"documentId": doc.DocumentId, "title": doc.Title}, nil
}

// SheetsReadTool implements sheets_read{spreadsheetId, range}.
type SheetsReadTool struct{ credentialsJSON string }

func NewSheetsReadTool(credentialsJSON string) *SheetsReadTool {
	return &SheetsReadTool{credentialsJSON: credentialsJSON}
}

func (t *SheetsReadTool) Name() string { return "sheets_read" }

func (t *SheetsReadTool) Validate(params map[string]interface{}) error {
	if _, err := requireString(params, "spreadsheetId"); err != nil {
		return err
	}
	_, err := requireString(params, "range")
	return err
}

func (t *SheetsReadTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	svc, err := sheets.NewService(ctx.Ctx, googleClientOptions(t.credentialsJSON)...)
	if err != nil {
		return nil, fmt.Errorf("execution: sheets service: %w", err)
	}
	spreadsheetID, _ := call.Parameters["spreadsheetId"].(string)
	rng, _ := call.Parameters["range"].(string)
	resp, err := svc.Spreadsheets.Values.Get(spreadsheetID, rng).Do()
	if err != nil {
		return nil, fmt.Errorf("execution: %w", err)
	}
	return map[string]interface{}{"range": resp.Range, "values": resp.Values}, nil
}

// CalendarListTool implements calendar_list{calendarId?}.
type CalendarListTool struct{ credentialsJSON string }

func NewCalendarListTool(credentialsJSON string) *CalendarListTool {
	return &CalendarListTool{credentialsJSON: credentialsJSON}
}

func (t *CalendarListTool) Name() string                                 { return "calendar_list" }
func (t *CalendarListTool) Validate(params map[string]interface{}) error { return nil }

func (t *CalendarListTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	svc, err := calendar.NewService(ctx.Ctx, googleClientOptions(t.credentialsJSON)...)
	if err != nil {
		return nil, fmt.Errorf("execution: calendar service: %w", err)
	}
	calendarID, _ := call.Parameters["calendarId"].(string)
	if calendarID == "" {
		calendarID = "primary"
	}
	events, err := svc.Events.List(calendarID).Do()
	if err != nil {
		return nil, fmt.Errorf("execution: %w", err)
	}
	out := make([]map[string]interface{}, 0, len(events.Items))
	for _, e := range events.Items {
		out = append(out, map[string]interface{}{"id": e.Id, "summary": e.Summary, "start": e.Start})
	}
	return map[string]interface{}{"events": out}, nil
}

// TasksListTool implements tasks_list{taskListId?}.
type TasksListTool struct{ credentialsJSON string }

func NewTasksListTool(credentialsJSON string) *TasksListTool {
	return &TasksListTool{credentialsJSON: credentialsJSON}
}

func (t *TasksListTool) Name() string                                 { return "tasks_list" }
func (t *TasksListTool) Validate(params map[string]interface{}) error { return nil }

func (t *TasksListTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	svc, err := tasks.NewService(ctx.Ctx, googleClientOptions(t.credentialsJSON)...)
	if err != nil {
		return nil, fmt.Errorf("execution: tasks service: %w", err)
	}
	taskListID, _ := call.Parameters["taskListId"].(string)
	if taskListID == "" {
		taskListID = "@default"
	}
	resp, err := svc.Tasks.List(taskListID).Do()
	if err != nil {
		return nil, fmt.Errorf("execution: %w", err)
	}
	out := make([]map[string]interface{}, 0, len(resp.Items))
	for _, item := range resp.Items {
		out = append(out, map[string]interface{}{"id": item.Id, "title": item.Title, "status": item.Status})
	}
	return map[string]interface{}{"tasks": out}, nil
}

// ContactsListTool implements contacts_list{}, via the People API.
type ContactsListTool struct{ credentialsJSON string }

func NewContactsListTool(credentialsJSON string) *ContactsListTool {
	return &ContactsListTool{credentialsJSON: credentialsJSON}
}

func (t *ContactsListTool) Name() string                                 { return "contacts_list" }
func (t *ContactsListTool) Validate(params map[string]interface{}) error { return nil }

func (t *ContactsListTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	svc, err := people.NewService(ctx.Ctx, googleClientOptions(t.credentialsJSON)...)
	if err != nil {
		return nil, fmt.Errorf("execution: people service: %w", err)
	}
	resp, err := svc.People.Connections.List("people/me").PersonFields("names,emailAddresses").Do()
	if err != nil {
		return nil, fmt.Errorf("execution: %w", err)
	}
	out := make([]map[string]interface{}, 0, len(resp.Connections))
	for _, p := range resp.Connections {
		entry := map[string]interface{}{}
		if len(p.Names) > 0 {
			entry["name"] = p.Names[0].DisplayName
		}
		if len(p.EmailAddresses) > 0 {
			entry["email"] = p.EmailAddresses[0].Value
		}
		out = append(out, entry)
	}
	return map[string]interface{}{"contacts": out}, nil
}

func base64URLEncode(s string) string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	data := []byte(s)
	var b strings.Builder
	for i := 0; i < len(data); i += 3 {
		chunk := data[i:min(i+3, len(data))]
		var n int
		for _, c := range chunk {
			n = n<<8 | int(c)
		}
		n <<= uint(8 * (3 - len(chunk)))
		for j := 0; j < len(chunk)+1; j++ {
			b.WriteByte(alphabet[(n>>(18-6*j))&0x3F])
		}
	}
	return b.String()
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
