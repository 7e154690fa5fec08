package models

import (
	"time"
)

type Project struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	OwnerID     int64     `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Labels      []Label   `gorm:"many2many:project_labels;" json:"labels,omitempty"`
}

type Label struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
}

type Image struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	ProjectID   int64     `json:"project_id"`
	ObjectName  string    `json:"object_name"`
	URL         string    `gorm:"column:url" json:"url"`
	ContentType string    `json:"content_type"`
}
