package pgstore

import (
	"time"

	"civicreport-be/models"

	"gorm.io/datatypes"
)

// Row types keep gorm tags out of the domain models. Seq is a database
// sequence used to break created_at ties in insertion order.

type userRecord struct {
	ID        string `gorm:"type:varchar(36);primaryKey"`
	Seq       int64  `gorm:"autoIncrement;not null;<-:false"`
	Name      string `gorm:"not null"`
	Email     string `gorm:"not null;uniqueIndex"`
	Password  string `gorm:"not null"`
	Role      string `gorm:"type:varchar(16);not null;index"`
	Phone     string
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (userRecord) TableName() string { return "users" }

func newUserRecord(u *models.User) userRecord {
	return userRecord{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Password:  u.Password,
		Role:      string(u.Role),
		Phone:     u.Phone,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (r userRecord) model() models.User {
	return models.User{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		Password:  r.Password,
		Role:      models.Role(r.Role),
		Phone:     r.Phone,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type issueRecord struct {
	ID          string `gorm:"type:varchar(36);primaryKey"`
	Seq         int64  `gorm:"autoIncrement;not null;<-:false"`
	Title       string `gorm:"not null"`
	Description string `gorm:"type:text;not null"`
	Category    string `gorm:"type:varchar(16);not null;index"`
	Status      string `gorm:"type:varchar(16);not null;index"`
	Priority    string `gorm:"type:varchar(8);not null"`
	Location    string
	Lat         *float64
	Lng         *float64
	Images      datatypes.JSONSlice[string] `gorm:"type:jsonb;not null"`
	ReporterID  string                      `gorm:"type:varchar(36);not null;index"`
	AssigneeID  *string                     `gorm:"type:varchar(36);index"`
	Department  string
	CreatedAt   time.Time `gorm:"not null;index"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (issueRecord) TableName() string { return "issues" }

func newIssueRecord(i *models.Issue) issueRecord {
	r := issueRecord{
		ID:          i.ID,
		Title:       i.Title,
		Description: i.Description,
		Category:    string(i.Category),
		Status:      string(i.Status),
		Priority:    string(i.Priority),
		Location:    i.Location,
		Images:      datatypes.JSONSlice[string](i.Images),
		ReporterID:  i.ReporterID,
		AssigneeID:  i.AssigneeID,
		Department:  i.Department,
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
	}
	if i.Coordinates != nil {
		lat, lng := i.Coordinates.Lat, i.Coordinates.Lng
		r.Lat, r.Lng = &lat, &lng
	}
	return r
}

func (r issueRecord) model() models.Issue {
	i := models.Issue{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Category:    models.IssueCategory(r.Category),
		Status:      models.IssueStatus(r.Status),
		Priority:    models.IssuePriority(r.Priority),
		Location:    r.Location,
		Images:      append([]string{}, r.Images...),
		ReporterID:  r.ReporterID,
		AssigneeID:  r.AssigneeID,
		Department:  r.Department,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if r.Lat != nil && r.Lng != nil {
		i.Coordinates = &models.Coordinates{Lat: *r.Lat, Lng: *r.Lng}
	}
	return i
}

type commentRecord struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	Seq       int64     `gorm:"autoIncrement;not null;<-:false"`
	IssueID   string    `gorm:"type:varchar(36);not null;index"`
	UserID    string    `gorm:"type:varchar(36);not null"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (commentRecord) TableName() string { return "comments" }

func (r commentRecord) model() models.Comment {
	return models.Comment{ID: r.ID, IssueID: r.IssueID, UserID: r.UserID, Content: r.Content, CreatedAt: r.CreatedAt.UTC()}
}

type updateRecord struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	Seq       int64     `gorm:"autoIncrement;not null;<-:false"`
	IssueID   string    `gorm:"type:varchar(36);not null;index"`
	Status    string    `gorm:"type:varchar(16);not null"`
	Message   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null"`
}

func (updateRecord) TableName() string { return "issue_updates" }

func (r updateRecord) model() models.IssueUpdate {
	return models.IssueUpdate{ID: r.ID, IssueID: r.IssueID, Status: models.IssueStatus(r.Status), Message: r.Message, CreatedAt: r.CreatedAt.UTC()}
}

type notificationRecord struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	Seq       int64     `gorm:"autoIncrement;not null;<-:false"`
	UserID    string    `gorm:"type:varchar(36);not null;index:idx_notifications_user_read"`
	Title     string    `gorm:"not null"`
	Message   string    `gorm:"type:text;not null"`
	Type      string    `gorm:"type:varchar(16);not null"`
	Read      bool      `gorm:"not null;default:false;index:idx_notifications_user_read"`
	CreatedAt time.Time `gorm:"not null"`
}

func (notificationRecord) TableName() string { return "notifications" }

func (r notificationRecord) model() models.Notification {
	return models.Notification{
		ID:        r.ID,
		UserID:    r.UserID,
		Title:     r.Title,
		Message:   r.Message,
		Type:      models.NotificationType(r.Type),
		Read:      r.Read,
		CreatedAt: r.CreatedAt.UTC(),
	}
}
