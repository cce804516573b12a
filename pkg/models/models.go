package models

import "encoding/json"

// StatusItem is a lifecycle state from the status catalog. Applications refer
// to a status by its Text.
type StatusItem struct {
	Text  string `json:"text"`
	Color string `json:"color"`
}

// ApplicationQuestion is a question asked during an application and the answer given.
type ApplicationQuestion struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// JobApplication represents a single job application
type JobApplication struct {
	ID          string                `json:"id"`
	Company     string                `json:"company"`
	Position    string                `json:"position"`
	Status      StatusItem            `json:"status"`
	AppliedDate string                `json:"appliedDate"` // YYYY-MM-DD
	Description string                `json:"description,omitempty"`
	Salary      string                `json:"salary,omitempty"` // display formatted, e.g. £50,000
	Location    string                `json:"location,omitempty"`
	Notes       string                `json:"notes,omitempty"`
	Link        string                `json:"link,omitempty"`
	CVID        string                `json:"cvId,omitempty"` // weak reference into the CV collection
	CoverLetter string                `json:"coverLetter,omitempty"`
	Questions   []ApplicationQuestion `json:"questions,omitempty"`
	AppliedVia  string                `json:"appliedVia,omitempty"`
}

// UnmarshalJSON accepts documents written by older versions, which embedded the
// whole CV object under "cv" instead of referencing it by id.
func (a *JobApplication) UnmarshalJSON(data []byte) error {
	type plain JobApplication
	aux := struct {
		*plain
		CV *struct {
			ID string `json:"id"`
		} `json:"cv,omitempty"`
	}{plain: (*plain)(a)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if a.CVID == "" && aux.CV != nil {
		a.CVID = aux.CV.ID
	}
	return nil
}

// Clone returns a deep copy of the application.
func (a JobApplication) Clone() JobApplication {
	if a.Questions != nil {
		a.Questions = append([]ApplicationQuestion(nil), a.Questions...)
	}
	return a
}

// CurriculumVitae represents a stored CV and its assets
type CurriculumVitae struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	ImagePreviewPath string `json:"imagePreviewPath"` // relative asset path
	PDFPath          string `json:"pdfPath,omitempty"`
	Date             string `json:"date,omitempty"`
	Notes            string `json:"notes,omitempty"`
}

// FileUpload is a file handed to the CV handler for storage.
type FileUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

// SortField selects the attribute applications are ordered by.
type SortField string

// SortOrder is the direction of a sort.
type SortOrder string

const (
	SortByDate     SortField = "date"
	SortByCompany  SortField = "company"
	SortByPosition SortField = "position"

	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortConfig is a transient, UI driven ordering of applications.
type SortConfig struct {
	Field SortField `json:"field"`
	Order SortOrder `json:"order"`
}

// SortPreference is the persisted default ordering. Field uses the stored
// names: appliedDate, company or position.
type SortPreference struct {
	Field string    `json:"field"`
	Order SortOrder `json:"order"`
}

// SortConfig maps the persisted preference onto a SortConfig.
func (p SortPreference) SortConfig() SortConfig {
	field := SortByDate
	switch p.Field {
	case "company":
		field = SortByCompany
	case "position":
		field = SortByPosition
	}
	order := p.Order
	if order != SortAsc && order != SortDesc {
		order = SortDesc
	}
	return SortConfig{Field: field, Order: order}
}

// Theme values
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// SettingsConfig holds the user preferences. After validation every field is populated.
type SettingsConfig struct {
	AutoUpdateEnabled        bool           `json:"autoUpdateEnabled"`
	AutoUpdateInterval       int            `json:"autoUpdateInterval"` // days
	DataBackupEnabled        bool           `json:"dataBackupEnabled"`
	ConfirmDeleteActions     bool           `json:"confirmDeleteActions"`
	DefaultApplicationStatus string         `json:"defaultApplicationStatus"`
	DefaultSortPreference    SortPreference `json:"defaultSortPreference"`
	Theme                    string         `json:"theme"`
}

// ApplicationVia lists the channels offered when recording how an application was made.
var ApplicationVia = []string{
	"LinkedIn",
	"Company Website",
	"Referral",
	"Job Board",
	"Recruiter",
}
