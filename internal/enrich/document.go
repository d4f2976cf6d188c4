package enrich

import (
	"time"

	"github.com/dmitrijs2005/subreport/internal/report"
)

// Document is the persisted enrichment result.
type Document struct {
	ExportInfo ExportInfo `json:"export_info"`
	Summary    Summary    `json:"summary"`
	Users      []User     `json:"subscribed_users"`
}

type ExportInfo struct {
	Timestamp            time.Time `json:"timestamp"`
	SourceFile           string    `json:"source_file"`
	TotalSubscribedUsers int       `json:"total_subscribed_users"`
}

type Summary struct {
	TotalSubscribedUsers  int         `json:"total_subscribed_users"`
	ActiveSubscriptions   int         `json:"active_subscriptions"`
	TrialingSubscriptions int         `json:"trialing_subscriptions"`
	UsersWithSheets       int         `json:"users_with_sheets"`
	UsersWithMenus        int         `json:"users_with_menus"`
	UsersWithCSV          int         `json:"users_with_csv"`
	UsersWithData         int         `json:"users_with_data"`
	TotalSheets           int         `json:"total_sheets"`
	TotalMenus            int         `json:"total_menus"`
	TotalCSVFiles         int         `json:"total_csv_files"`
	SetupStatus           SetupStatus `json:"setup_status"`
}

// SetupStatus splits users by what they still have to upload.
type SetupStatus struct {
	FullySetup   int `json:"fully_setup"`
	NeedMenuOnly int `json:"need_menu_only"`
	NeedDataOnly int `json:"need_data_only"`
	NeedBoth     int `json:"need_both"`
}

// User is an entitled user with the assets attached.
type User struct {
	UserID             string        `json:"user_id"`
	Name               string        `json:"name"`
	Email              string        `json:"email"`
	SubscriptionStatus report.Status `json:"subscription_status"`
	CurrentPeriodStart *time.Time    `json:"current_period_start"`
	CurrentPeriodEnd   *time.Time    `json:"current_period_end"`
	TrialEnd           *time.Time    `json:"trial_end"`
	UserCreated        *time.Time    `json:"user_created"`
	GoogleSheets       []Sheet       `json:"google_sheets"`
	MenuFiles          []Menu        `json:"menu_files"`
	CSVFiles           []CSVFile     `json:"csv_files"`
	SheetsCount        int           `json:"sheets_count"`
	MenusCount         int           `json:"menus_count"`
	CSVCount           int           `json:"csv_count"`
	Notes              string        `json:"notes"`
}

type Sheet struct {
	SheetID     string     `json:"sheet_id"`
	SheetName   string     `json:"sheet_name"`
	SheetURL    string     `json:"sheet_url"`
	Description *string    `json:"description"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

type Menu struct {
	MenuID   string `json:"menu_id"`
	FileName string `json:"file_name"`
	FileURL  string `json:"file_url"`
}

type CSVFile struct {
	CSVID     string     `json:"csv_id"`
	FileName  string     `json:"file_name"`
	FileURL   string     `json:"file_url"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

// hasData is true when the user uploaded inventory data (a sheet or a CSV).
func (u User) hasData() bool { return u.SheetsCount > 0 || u.CSVCount > 0 }

func summarize(users []User) Summary {
	s := Summary{TotalSubscribedUsers: len(users)}
	for _, u := range users {
		switch u.SubscriptionStatus {
		case report.StatusActive:
			s.ActiveSubscriptions++
		case report.StatusTrialing:
			s.TrialingSubscriptions++
		}

		s.TotalSheets += u.SheetsCount
		s.TotalMenus += u.MenusCount
		s.TotalCSVFiles += u.CSVCount
		if u.SheetsCount > 0 {
			s.UsersWithSheets++
		}
		if u.MenusCount > 0 {
			s.UsersWithMenus++
		}
		if u.CSVCount > 0 {
			s.UsersWithCSV++
		}

		switch {
		case u.hasData() && u.MenusCount > 0:
			s.UsersWithData++
			s.SetupStatus.FullySetup++
		case u.hasData():
			s.UsersWithData++
			s.SetupStatus.NeedMenuOnly++
		case u.MenusCount > 0:
			s.SetupStatus.NeedDataOnly++
		default:
			s.SetupStatus.NeedBoth++
		}
	}
	return s
}
