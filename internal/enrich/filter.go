package enrich

import "strings"

// Filtered is the list of users that have inventory data to analyse.
type Filtered struct {
	Count int            `json:"filtered_users_count"`
	Users []FilteredUser `json:"users_with_sheets_or_csv"`
}

type FilteredUser struct {
	UserID           string    `json:"user_id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	GoogleSheetsURLs []string  `json:"google_sheets_urls"`
	CSVFileURLs      []FileURL `json:"csv_file_urls"`
	MenuFileURLs     []FileURL `json:"menu_file_urls"`
}

type FileURL struct {
	FileName string `json:"file_name"`
	FileURL  string `json:"file_url"`
}

// Filter keeps users with at least one usable sheet or CSV URL. Menus are
// carried along but never qualify a user on their own. At most MaxPerKind
// URLs of each kind are kept.
func Filter(doc *Document) Filtered {
	out := Filtered{Users: []FilteredUser{}}
	for _, u := range doc.Users {
		fu := FilteredUser{
			UserID:           u.UserID,
			Name:             u.Name,
			Email:            u.Email,
			GoogleSheetsURLs: []string{},
			CSVFileURLs:      []FileURL{},
			MenuFileURLs:     []FileURL{},
		}
		for _, s := range head(u.GoogleSheets) {
			if url := CleanURL(s.SheetURL); url != "" {
				fu.GoogleSheetsURLs = append(fu.GoogleSheetsURLs, url)
			}
		}
		for _, c := range head(u.CSVFiles) {
			if url := CleanURL(c.FileURL); url != "" {
				fu.CSVFileURLs = append(fu.CSVFileURLs, FileURL{FileName: c.FileName, FileURL: url})
			}
		}
		for _, m := range head(u.MenuFiles) {
			if url := CleanURL(m.FileURL); url != "" {
				fu.MenuFileURLs = append(fu.MenuFileURLs, FileURL{FileName: m.FileName, FileURL: url})
			}
		}

		if len(fu.GoogleSheetsURLs) > 0 || len(fu.CSVFileURLs) > 0 {
			out.Users = append(out.Users, fu)
		}
	}
	out.Count = len(out.Users)
	return out
}

// CleanURL strips surrounding spaces and backticks.
func CleanURL(s string) string {
	return strings.Trim(strings.TrimSpace(s), "` ")
}

func head[T any](s []T) []T {
	if len(s) > MaxPerKind {
		return s[:MaxPerKind]
	}
	return s
}
