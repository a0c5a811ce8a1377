package dto

// HistoryEntryRequest is one imported past participation.
type HistoryEntryRequest struct {
	PersonName  string `json:"personName" yaml:"personName" validate:"required,max=200"`
	PersonID    string `json:"personId" yaml:"personId"`
	WeekID      string `json:"weekId" yaml:"weekId" validate:"max=64"`
	Date        string `json:"date" yaml:"date" validate:"required,datetime=2006-01-02"`
	RoleTitle   string `json:"roleTitle" yaml:"roleTitle" validate:"required,max=200"`
	RoleType    string `json:"roleType" yaml:"roleType"`
	DurationMin int    `json:"durationMin" yaml:"durationMin" validate:"omitempty,min=1,max=120"`
}

// ImportHistoryRequest appends entries to the permanent record.
type ImportHistoryRequest struct {
	Entries []HistoryEntryRequest `json:"entries" yaml:"entries" validate:"required,min=1,dive"`
}

// HistoryQuery filters history listings.
type HistoryQuery struct {
	Since  string `form:"since" validate:"omitempty,datetime=2006-01-02"`
	Person string `form:"person"`
	WeekID string `form:"weekId"`
}
