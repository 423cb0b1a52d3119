package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"civicreport-be/apperrors"
	"civicreport-be/models"
	"civicreport-be/realtime"
	"civicreport-be/repositories"

	"go.uber.org/zap"
)

// notice is a notification to create as part of a lifecycle write.
type notice struct {
	userID  string
	title   string
	message string
	typ     models.NotificationType
}

// plan is the set of writes one lifecycle operation performs.
type plan struct {
	patch   repositories.IssuePatch
	update  *models.IssueUpdate
	notices []notice
}

func (p plan) empty() bool {
	return p.patch.Empty() && p.update == nil && len(p.notices) == 0
}

func invalidTransition(from, to models.IssueStatus) error {
	return apperrors.Validation("Invalid status transition from %s to %s", from, to)
}

func statusUpdate(status models.IssueStatus, message string) *models.IssueUpdate {
	if message == "" {
		message = fmt.Sprintf("Status updated to %s", status)
	}
	return &models.IssueUpdate{Status: status, Message: message}
}

func statusNotice(issue *models.Issue, status models.IssueStatus) notice {
	if status == models.StatusResolved {
		return notice{
			userID:  issue.ReporterID,
			title:   "Issue Resolved",
			message: fmt.Sprintf("Your issue %q has been resolved", issue.Title),
			typ:     models.NotificationResolution,
		}
	}
	return notice{
		userID:  issue.ReporterID,
		title:   "Issue Status Updated",
		message: fmt.Sprintf("Your issue %q is now %s", issue.Title, status),
		typ:     models.NotificationIssueUpdate,
	}
}

// unit is one lifecycle write. Inside a transaction every failure aborts
// the unit. Without one, failures after the issue write are logged as
// inconsistencies and the unit carries on.
type unit struct {
	tx      repositories.Store
	strict  bool
	log     *zap.Logger
	issueID string
}

func (u *unit) after(step string, err error) error {
	if err == nil || u.strict {
		return err
	}
	u.log.Error("lifecycle inconsistency: write after issue change failed",
		zap.String("issue_id", u.issueID), zap.String("step", step), zap.Error(err))
	return nil
}

func (s *IssueService) inUnit(ctx context.Context, issueID string, fn func(ctx context.Context, u *unit) error) error {
	strict := s.store.Transactional()
	return s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		return fn(ctx, &unit{tx: tx, strict: strict, log: s.log, issueID: issueID})
	})
}

// commit loads the issue inside the unit, asks build for the writes to
// perform and applies them in the order issue, update, notifications. Live
// events go out only once the unit has committed.
func (s *IssueService) commit(ctx context.Context, id string, build func(current *models.Issue) (plan, error)) (*models.Issue, error) {
	var (
		result  *models.Issue
		written []*models.Notification
		applied plan
	)
	err := s.inUnit(ctx, id, func(ctx context.Context, u *unit) error {
		written = nil
		current, err := u.tx.Issues().Get(ctx, id)
		if err != nil {
			return err
		}
		p, err := build(current)
		if err != nil {
			return err
		}
		applied = p
		if p.empty() {
			result = current
			return nil
		}

		if p.patch.Status != nil || p.update != nil {
			expect := current.Status
			p.patch.ExpectStatus = &expect
		}
		if p.patch.Empty() {
			result = current
		} else if result, err = u.tx.Issues().Update(ctx, id, p.patch); err != nil {
			return err
		}

		if p.update != nil {
			p.update.IssueID = id
			p.update.CreatedAt = s.now()
			if err := u.after("issue_update", u.tx.IssueUpdates().Create(ctx, p.update)); err != nil {
				return err
			}
		}
		for _, n := range p.notices {
			created, err := s.notifier.record(ctx, u.tx, n.userID, n.title, n.message, n.typ)
			if err := u.after("notification", err); err != nil {
				return err
			}
			if created != nil {
				written = append(written, created)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if applied.patch.Status != nil {
		transitionsTotal.WithLabelValues(string(*applied.patch.Status)).Inc()
	}
	if applied.update != nil {
		s.notifier.Push(result.ReporterID, realtime.Event{
			Name: realtime.EventIssueUpdated,
			Data: map[string]any{"issueId": result.ID, "status": result.Status},
		})
	}
	for _, n := range written {
		s.notifier.Push(n.UserID, realtime.Event{Name: realtime.EventNotification, Data: n})
	}

	if err := s.hydrate(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// checkAssignee verifies that id names a staff user.
func (s *IssueService) checkAssignee(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.Validation("Assignee id must not be empty")
	}
	u, err := s.store.Users().GetByID(ctx, id)
	if apperrors.IsNotFound(err) {
		return apperrors.Validation("Assignee not found")
	}
	if err != nil {
		return err
	}
	if !u.Role.IsStaff() {
		return apperrors.Validation("Assignee must be a staff member")
	}
	return nil
}

type AssignInput struct {
	AssigneeID string `json:"assigneeId"`
	Department string `json:"department" validate:"max=100"`
}

// Assign sets assignee and department and moves the issue to ASSIGNED in a
// single transition. Assigning an already ASSIGNED issue records a
// reassignment.
func (s *IssueService) Assign(ctx context.Context, actor Actor, id string, in AssignInput) (*models.Issue, error) {
	if !actor.IsStaff() {
		return nil, apperrors.Forbidden("Staff access required")
	}
	in.AssigneeID = strings.TrimSpace(in.AssigneeID)
	in.Department = strings.TrimSpace(in.Department)
	if in.AssigneeID == "" && in.Department == "" {
		return nil, apperrors.Validation("assigneeId or department is required")
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.AssigneeID != "" {
		if err := s.checkAssignee(ctx, in.AssigneeID); err != nil {
			return nil, err
		}
	}

	return s.commit(ctx, id, func(cur *models.Issue) (plan, error) {
		var p plan
		switch cur.Status {
		case models.StatusSubmitted, models.StatusAcknowledged:
			st := models.StatusAssigned
			p.patch.Status = &st
		case models.StatusAssigned:
		default:
			return plan{}, invalidTransition(cur.Status, models.StatusAssigned)
		}
		if in.AssigneeID != "" {
			p.patch.AssigneeID = &in.AssigneeID
		}
		if in.Department != "" {
			p.patch.Department = &in.Department
		}

		target := in.Department
		if target == "" {
			target = "department"
		}
		p.update = &models.IssueUpdate{
			Status:  models.StatusAssigned,
			Message: fmt.Sprintf("Issue assigned to %s", target),
		}
		p.notices = append(p.notices, notice{
			userID:  cur.ReporterID,
			title:   "Issue Assigned",
			message: fmt.Sprintf("Your issue %q has been assigned to %s", cur.Title, target),
			typ:     models.NotificationAssignment,
		})
		if in.AssigneeID != "" && in.AssigneeID != cur.ReporterID {
			p.notices = append(p.notices, notice{
				userID:  in.AssigneeID,
				title:   "New Assignment",
				message: fmt.Sprintf("You have been assigned issue %q", cur.Title),
				typ:     models.NotificationAssignment,
			})
		}
		return p, nil
	})
}

type StatusInput struct {
	Status  string `json:"status"`
	Message string `json:"message" validate:"max=500"`
}

// UpdateStatus moves the issue along the transition graph. Setting the
// current status again changes nothing.
func (s *IssueService) UpdateStatus(ctx context.Context, actor Actor, id string, in StatusInput) (*models.Issue, error) {
	if !actor.IsStaff() {
		return nil, apperrors.Forbidden("Staff access required")
	}
	target, err := parseStatus(in.Status)
	if err != nil {
		return nil, err
	}
	in.Message = strings.TrimSpace(in.Message)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	return s.commit(ctx, id, func(cur *models.Issue) (plan, error) {
		if cur.Status == target {
			return plan{}, nil
		}
		if !cur.Status.CanTransitionTo(target) {
			return plan{}, invalidTransition(cur.Status, target)
		}
		return plan{
			patch:   repositories.IssuePatch{Status: &target},
			update:  statusUpdate(target, in.Message),
			notices: []notice{statusNotice(cur, target)},
		}, nil
	})
}

const maxCommentLength = 500

// AddComment appends a comment and notifies the reporter.
func (s *IssueService) AddComment(ctx context.Context, actor Actor, issueID, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if n := utf8.RuneCountInString(content); n == 0 || n > maxCommentLength {
		return nil, apperrors.Validation("Comment must be 1-%d characters", maxCommentLength)
	}

	var (
		comment *models.Comment
		note    *models.Notification
		issue   *models.Issue
	)
	err := s.inUnit(ctx, issueID, func(ctx context.Context, u *unit) error {
		var err error
		if issue, err = u.tx.Issues().Get(ctx, issueID); err != nil {
			return err
		}
		comment = &models.Comment{
			Content:   content,
			IssueID:   issueID,
			UserID:    actor.ID,
			CreatedAt: s.now(),
		}
		if err := u.tx.Comments().Create(ctx, comment); err != nil {
			return err
		}
		note, err = s.notifier.record(ctx, u.tx, issue.ReporterID, "New Comment",
			fmt.Sprintf("New comment on your issue %q", issue.Title), models.NotificationGeneral)
		return u.after("notification", err)
	})
	if err != nil {
		return nil, err
	}

	hydrated := []models.Comment{*comment}
	if err := s.hydrateComments(ctx, hydrated); err != nil {
		return nil, err
	}
	comment = &hydrated[0]
	s.notifier.Push(issue.ReporterID, realtime.Event{
		Name: realtime.EventNewComment,
		Data: map[string]any{"issueId": issueID, "comment": comment},
	})
	if note != nil {
		s.notifier.Push(note.UserID, realtime.Event{Name: realtime.EventNotification, Data: note})
	}
	return comment, nil
}
