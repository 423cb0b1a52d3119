package services

import (
	"context"
	"strings"
	"time"

	"civicreport-be/apperrors"
	"civicreport-be/classifier"
	"civicreport-be/models"
	"civicreport-be/realtime"
	"civicreport-be/repositories"
	"civicreport-be/storage"

	"go.uber.org/zap"
)

const (
	DefaultIssuePageSize = 10
	MaxImagesPerUpload   = 10
	MapPinLimit          = 20
)

// IssueService implements issue reads, writes and the status lifecycle.
type IssueService struct {
	store    repositories.Store
	notifier *NotificationService
	images   storage.ImageStore
	log      *zap.Logger
	now      Clock
}

func NewIssueService(store repositories.Store, notifier *NotificationService, images storage.ImageStore, log *zap.Logger) *IssueService {
	if images == nil {
		images = storage.Disabled()
	}
	return &IssueService{store: store, notifier: notifier, images: images, log: log, now: time.Now}
}

type CreateIssueInput struct {
	Title       string              `json:"title" validate:"min=5,max=200"`
	Description string              `json:"description" validate:"min=10,max=1000"`
	Category    string              `json:"category"`
	Location    string              `json:"location" validate:"min=5,max=200"`
	Coordinates *models.Coordinates `json:"coordinates"`
	Priority    string              `json:"priority"`
	Images      []string            `json:"images" validate:"max=10,dive,url"`
}

func parseCategory(v string) (models.IssueCategory, error) {
	c := models.IssueCategory(strings.ToUpper(strings.TrimSpace(v)))
	if !c.Valid() {
		return "", apperrors.Validation("Invalid category")
	}
	return c, nil
}

func parsePriority(v string) (models.IssuePriority, error) {
	p := models.IssuePriority(strings.ToUpper(strings.TrimSpace(v)))
	if !p.Valid() {
		return "", apperrors.Validation("Invalid priority")
	}
	return p, nil
}

func parseStatus(v string) (models.IssueStatus, error) {
	s := models.IssueStatus(strings.ToUpper(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", apperrors.Validation("Invalid status")
	}
	return s, nil
}

// Create stores a new SUBMITTED issue. Without a category the classifier
// supplies category, department, a default priority and, when missing, the
// title.
func (s *IssueService) Create(ctx context.Context, actor Actor, in CreateIssueInput) (*models.Issue, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Location = strings.TrimSpace(in.Location)

	issue := &models.Issue{
		Status:      models.StatusSubmitted,
		Priority:    models.PriorityMedium,
		Coordinates: in.Coordinates,
		Images:      []string{},
		ReporterID:  actor.ID,
	}

	if strings.TrimSpace(in.Category) == "" {
		res := classifier.Classify(strings.TrimSpace(in.Title + " " + in.Description))
		issue.Category = res.Category
		issue.Department = res.Department
		issue.Priority = res.Priority
		if in.Title == "" {
			in.Title = res.Title
		}
	} else {
		c, err := parseCategory(in.Category)
		if err != nil {
			return nil, err
		}
		issue.Category = c
	}
	if strings.TrimSpace(in.Priority) != "" {
		p, err := parsePriority(in.Priority)
		if err != nil {
			return nil, err
		}
		issue.Priority = p
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	issue.Title = in.Title
	issue.Description = in.Description
	issue.Location = in.Location
	if len(in.Images) > 0 {
		issue.Images = append(issue.Images, in.Images...)
	}
	issue.CreatedAt = s.now()
	issue.UpdatedAt = issue.CreatedAt

	if err := s.store.Issues().Create(ctx, issue); err != nil {
		return nil, err
	}
	if err := s.hydrate(ctx, issue); err != nil {
		return nil, err
	}
	s.notifier.Broadcast(realtime.Event{Name: realtime.EventNewIssue, Data: map[string]any{"issue": issue}})
	return issue, nil
}

func (s *IssueService) List(ctx context.Context, q repositories.IssueQuery, page repositories.Page) ([]models.Issue, int64, error) {
	filters, err := repositories.BuildIssueFilters(q)
	if err != nil {
		return nil, 0, err
	}
	issues, total, err := s.store.Issues().List(ctx, filters, page)
	if err != nil {
		return nil, 0, err
	}
	if issues == nil {
		issues = []models.Issue{}
	}
	ptrs := make([]*models.Issue, len(issues))
	for i := range issues {
		ptrs[i] = &issues[i]
	}
	if err := s.hydrate(ctx, ptrs...); err != nil {
		return nil, 0, err
	}
	return issues, total, nil
}

// Get returns the issue with its people, comments and audit trail. Reading
// is open to every authenticated user.
func (s *IssueService) Get(ctx context.Context, id string) (*models.IssueDetail, error) {
	issue, err := s.store.Issues().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	comments, err := s.store.Comments().ListByIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	updates, err := s.store.IssueUpdates().ListByIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.hydrate(ctx, issue); err != nil {
		return nil, err
	}
	if err := s.hydrateComments(ctx, comments); err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	if updates == nil {
		updates = []models.IssueUpdate{}
	}
	return &models.IssueDetail{Issue: *issue, Comments: comments, Updates: updates}, nil
}

// hydrate fills reporter and assignee summaries.
func (s *IssueService) hydrate(ctx context.Context, issues ...*models.Issue) error {
	seen := map[string]bool{}
	var ids []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, issue := range issues {
		add(issue.ReporterID)
		if issue.AssigneeID != nil {
			add(*issue.AssigneeID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	summaries, err := s.store.Users().Summaries(ctx, ids)
	if err != nil {
		return err
	}
	for _, issue := range issues {
		if u, ok := summaries[issue.ReporterID]; ok {
			issue.Reporter = &u
		}
		if issue.AssigneeID != nil {
			if u, ok := summaries[*issue.AssigneeID]; ok {
				issue.Assignee = &u
			}
		}
	}
	return nil
}

func (s *IssueService) hydrateComments(ctx context.Context, comments []models.Comment) error {
	if len(comments) == 0 {
		return nil
	}
	var ids []string
	for _, c := range comments {
		ids = append(ids, c.UserID)
	}
	summaries, err := s.store.Users().Summaries(ctx, ids)
	if err != nil {
		return err
	}
	for i := range comments {
		if u, ok := summaries[comments[i].UserID]; ok {
			u.Email = ""
			comments[i].User = &u
		}
	}
	return nil
}

type UpdateIssueInput struct {
	Title       *string             `json:"title" validate:"omitempty,min=5,max=200"`
	Description *string             `json:"description" validate:"omitempty,min=10,max=1000"`
	Category    *string             `json:"category"`
	Location    *string             `json:"location" validate:"omitempty,min=5,max=200"`
	Coordinates *models.Coordinates `json:"coordinates"`
	Priority    *string             `json:"priority"`
	Status      *string             `json:"status"`
	AssigneeID  *string             `json:"assigneeId"`
	Department  *string             `json:"department" validate:"omitempty,max=100"`
	Message     *string             `json:"message" validate:"omitempty,max=500"`
}

func (in UpdateIssueInput) touchesContent() bool {
	return in.Title != nil || in.Description != nil || in.Category != nil || in.Location != nil || in.Coordinates != nil
}

func (in UpdateIssueInput) touchesTriage() bool {
	return in.Status != nil || in.AssigneeID != nil || in.Department != nil
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}

// authorizeUpdate enforces field ownership: the reporter owns content,
// staff own triage, and either may change priority.
func authorizeUpdate(actor Actor, issue *models.Issue, in UpdateIssueInput) error {
	reporter := issue.ReporterID == actor.ID
	staff := actor.IsStaff()
	switch {
	case !staff && !reporter:
		return apperrors.Forbidden("Not authorized to update this issue")
	case !staff && in.touchesTriage():
		return apperrors.Forbidden("Only staff can change status or assignment")
	case staff && !reporter && in.touchesContent():
		return apperrors.Forbidden("Only the reporter can edit the issue content")
	}
	return nil
}

// Update applies a partial change. A status change goes through the
// lifecycle and is recorded and notified like UpdateStatus.
func (s *IssueService) Update(ctx context.Context, actor Actor, id string, in UpdateIssueInput) (*models.Issue, error) {
	current, err := s.store.Issues().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeUpdate(actor, current, in); err != nil {
		return nil, err
	}

	in.Title, in.Description, in.Location = trimmed(in.Title), trimmed(in.Description), trimmed(in.Location)
	in.Department, in.AssigneeID, in.Message = trimmed(in.Department), trimmed(in.AssigneeID), trimmed(in.Message)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	var patch repositories.IssuePatch
	patch.Title, patch.Description, patch.Location = in.Title, in.Description, in.Location
	patch.Coordinates, patch.Department = in.Coordinates, in.Department
	if in.Category != nil {
		c, err := parseCategory(*in.Category)
		if err != nil {
			return nil, err
		}
		patch.Category = &c
	}
	if in.Priority != nil {
		p, err := parsePriority(*in.Priority)
		if err != nil {
			return nil, err
		}
		patch.Priority = &p
	}
	if in.AssigneeID != nil {
		if err := s.checkAssignee(ctx, *in.AssigneeID); err != nil {
			return nil, err
		}
		patch.AssigneeID = in.AssigneeID
	}

	var target *models.IssueStatus
	if in.Status != nil {
		st, err := parseStatus(*in.Status)
		if err != nil {
			return nil, err
		}
		target = &st
	}
	message := ""
	if in.Message != nil {
		message = *in.Message
	}

	return s.commit(ctx, id, func(cur *models.Issue) (plan, error) {
		p := plan{patch: patch}
		if target != nil && *target != cur.Status {
			if !cur.Status.CanTransitionTo(*target) {
				return plan{}, invalidTransition(cur.Status, *target)
			}
			p.patch.Status = target
			p.update = statusUpdate(*target, message)
			p.notices = []notice{statusNotice(cur, *target)}
		}
		return p, nil
	})
}

// Delete removes an issue with its comments and updates. Staff may delete
// any issue; the reporter only while it is still SUBMITTED.
func (s *IssueService) Delete(ctx context.Context, actor Actor, id string) error {
	issue, err := s.store.Issues().Get(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsStaff() {
		if issue.ReporterID != actor.ID {
			return apperrors.Forbidden("Not authorized to delete this issue")
		}
		if issue.Status != models.StatusSubmitted {
			return apperrors.Forbidden("Only submitted issues can be deleted by their reporter")
		}
	}
	return s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		return tx.Issues().Delete(ctx, id)
	})
}

// ImageUpload is the outcome of AppendImages.
type ImageUpload struct {
	Issue    *models.Issue
	Uploaded int
	Failed   int
}

// AppendImages uploads base64 payloads and appends the resulting URLs in
// request order. Payloads that fail to decode or upload are logged and
// skipped.
func (s *IssueService) AppendImages(ctx context.Context, actor Actor, id string, payloads []string) (*ImageUpload, error) {
	if len(payloads) == 0 {
		return nil, apperrors.Validation("Images array required")
	}
	if len(payloads) > MaxImagesPerUpload {
		return nil, apperrors.Validation("At most %d images per upload", MaxImagesPerUpload)
	}
	issue, err := s.store.Issues().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if issue.ReporterID != actor.ID && !actor.IsStaff() {
		return nil, apperrors.Forbidden("Not authorized to add images to this issue")
	}

	result := &ImageUpload{Issue: issue}
	var urls []string
	for i, payload := range payloads {
		data, ctype, err := storage.DecodeImage(payload)
		if err == nil {
			var url string
			if url, err = s.images.Put(ctx, data, ctype); err == nil {
				urls = append(urls, url)
				continue
			}
		}
		result.Failed++
		s.log.Warn("image upload skipped", zap.String("issue_id", id), zap.Int("index", i), zap.Error(err))
	}
	result.Uploaded = len(urls)
	if len(urls) == 0 {
		return result, nil
	}

	updated, err := s.store.Issues().AppendImages(ctx, id, urls)
	if err != nil {
		return nil, err
	}
	result.Issue = updated
	return result, nil
}

// Map returns pins for the most recent issues carrying coordinates.
func (s *IssueService) Map(ctx context.Context) ([]models.IssuePin, error) {
	issues, err := s.store.Issues().RecentWithCoordinates(ctx, MapPinLimit)
	if err != nil {
		return nil, err
	}
	pins := make([]models.IssuePin, 0, len(issues))
	for _, issue := range issues {
		if pin, ok := issue.Pin(); ok {
			pins = append(pins, pin)
		}
	}
	return pins, nil
}

// Classify runs the keyword classifier without persisting anything.
func (s *IssueService) Classify(text string) (classifier.Result, error) {
	if strings.TrimSpace(text) == "" {
		return classifier.Result{}, apperrors.Validation("Text is required")
	}
	return classifier.Classify(text), nil
}
