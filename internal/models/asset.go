package models

import "time"

// Sheet is a Google Sheet a user connected (table sheet_table).
type Sheet struct {
	ID          string
	UserID      string
	Name        string
	URL         string
	Description *string
	IsActive    bool
	CreatedAt   *time.Time
	UpdatedAt   *time.Time
}

// Menu is an uploaded menu file (table menu).
type Menu struct {
	ID       string
	UserID   string
	FileName string
	FileURL  string
}

// CSVFile is an uploaded inventory CSV (table csv).
type CSVFile struct {
	ID        string
	UserID    string
	FileName  string
	FileURL   string
	CreatedAt *time.Time
	UpdatedAt *time.Time
}
