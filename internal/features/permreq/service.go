package permreq

import (
	"context"
	"errors"
	"time"

	"estate-cms/internal/common/models"
	"estate-cms/internal/features/audit"
	"estate-cms/internal/features/notification"
	"estate-cms/internal/features/user"
	"estate-cms/internal/permissions"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrSuperAdminRequester = errors.New("super admins already hold every permission")
	ErrNoPermissions       = errors.New("at least one permission must be requested")
	ErrDuplicatePermission = errors.New("a collection appears more than once in the request")
	ErrUnknownPermission   = errors.New("unknown collection or sub-role in the request")
	ErrAlreadyHeld         = errors.New("requester already holds every requested permission")
	ErrOverlappingRequest  = errors.New("a pending request already covers one of these collections")
	ErrInvalidReviewAction = errors.New("review action must be approve or reject")
	ErrGrantNotRequested   = errors.New("granted permissions must be a subset of the requested ones")
	ErrUnknownPriority     = errors.New("unknown priority")
)

// Pending requests nobody reviews are closed out by the maintenance scheduler
// after this long.
const stalePendingAfter = 30 * 24 * time.Hour

type CreateInput struct {
	Permissions           []RequestedPermission
	Message               string
	BusinessJustification string
	RequestedExpiry       *time.Time
	Priority              RequestPriority
}

type ReviewInput struct {
	Action             string
	ReviewNotes        string
	GrantedPermissions []RequestedPermission
	GrantedExpiry      *time.Time
}

type ListRequestFilters struct {
	Status      RequestStatus
	RequesterID string
}

type PermissionRequestService interface {
	CreateRequest(ctx context.Context, requester *models.User, input CreateInput) (*PermissionRequest, error)
	// ListRequests scopes results to the caller: admins see everything plus
	// queue stats, everyone else sees only their own requests.
	ListRequests(ctx context.Context, principal *models.User, filters ListRequestFilters, limit int64) ([]PermissionRequest, *RequestStats, error)
	Review(ctx context.Context, reviewer *models.User, requestID string, input ReviewInput) (*PermissionRequest, error)
	ExpireStalePending(ctx context.Context) (int, error)
}

type PermissionRequestServiceImpl struct {
	Repo          PermissionRequestRepository
	Users         user.UserService
	UserRepo      user.UserRepository
	AuditService  audit.AuditService
	Notifications notification.NotificationService
	Logger        *zap.Logger
}

func NewPermissionRequestService(
	repo PermissionRequestRepository,
	users user.UserService,
	userRepo user.UserRepository,
	auditService audit.AuditService,
	notifications notification.NotificationService,
	logger *zap.Logger,
) PermissionRequestService {
	return &PermissionRequestServiceImpl{
		Repo:          repo,
		Users:         users,
		UserRepo:      userRepo,
		AuditService:  auditService,
		Notifications: notifications,
		Logger:        logger,
	}
}

func (s *PermissionRequestServiceImpl) CreateRequest(ctx context.Context, requester *models.User, input CreateInput) (*PermissionRequest, error) {
	subject := requester.Subject()
	if subject.IsSuperAdmin() {
		return nil, ErrSuperAdminRequester
	}
	if err := validatePermissionList(input.Permissions); err != nil {
		return nil, err
	}
	if input.Priority == "" {
		input.Priority = PriorityNormal
	} else if !validPriority(input.Priority) {
		return nil, ErrUnknownPriority
	}

	if allHeld(subject, input.Permissions) {
		return nil, ErrAlreadyHeld
	}

	pending, err := s.Repo.FindPendingByRequester(ctx, requester.ID)
	if err != nil {
		return nil, err
	}
	for _, existing := range pending {
		for _, held := range existing.Permissions {
			for _, wanted := range input.Permissions {
				if held.Collection == wanted.Collection {
					return nil, ErrOverlappingRequest
				}
			}
		}
	}

	req := &PermissionRequest{
		RequesterID:           requester.ID,
		RequesterEmail:        requester.Email,
		Permissions:           input.Permissions,
		Message:               input.Message,
		BusinessJustification: input.BusinessJustification,
		RequestedExpiry:       input.RequestedExpiry,
		Priority:              input.Priority,
	}
	if err := s.Repo.Create(ctx, req); err != nil {
		return nil, err
	}

	s.AuditService.Record(ctx, models.AuditLog{
		Action:    models.AuditPermReqCreated,
		Success:   true,
		Level:     models.AuditLevelInfo,
		UserID:    requester.ID.Hex(),
		UserEmail: requester.Email,
		Resource:  "permission_request",
		Details: map[string]interface{}{
			"request_id":  req.ID.Hex(),
			"collections": collectionNames(req.Permissions),
			"priority":    string(req.Priority),
		},
	})

	s.notifyAdmins(ctx, req)
	return req, nil
}

func (s *PermissionRequestServiceImpl) ListRequests(ctx context.Context, principal *models.User, filters ListRequestFilters, limit int64) ([]PermissionRequest, *RequestStats, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	filter := make(map[string]interface{})
	if filters.Status != "" {
		filter["status"] = filters.Status
	}

	isAdmin := principal.Subject().IsAdmin()
	if isAdmin {
		if filters.RequesterID != "" {
			oid, err := primitive.ObjectIDFromHex(filters.RequesterID)
			if err != nil {
				return nil, nil, models.ErrNotFound
			}
			filter["requester_id"] = oid
		}
	} else {
		filter["requester_id"] = principal.ID
	}

	requests, err := s.Repo.List(ctx, filter, limit)
	if err != nil {
		return nil, nil, err
	}

	if !isAdmin {
		return requests, nil, nil
	}

	stats, err := s.Repo.CountByStatus(ctx)
	if err != nil {
		return nil, nil, err
	}
	return requests, &stats, nil
}

func (s *PermissionRequestServiceImpl) Review(ctx context.Context, reviewer *models.User, requestID string, input ReviewInput) (*PermissionRequest, error) {
	if input.Action != "approve" && input.Action != "reject" {
		return nil, ErrInvalidReviewAction
	}

	oid, err := primitive.ObjectIDFromHex(requestID)
	if err != nil {
		return nil, models.ErrNotFound
	}

	req, err := s.Repo.GetByID(ctx, oid)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	fields := map[string]interface{}{
		"reviewer_id":    reviewer.ID.Hex(),
		"reviewer_email": reviewer.Email,
		"review_notes":   input.ReviewNotes,
		"reviewed_at":    now,
	}

	granted := input.GrantedPermissions
	grantedExpiry := input.GrantedExpiry
	if input.Action == "approve" {
		if len(granted) == 0 {
			granted = req.Permissions
		} else if err := subsetOf(granted, req.Permissions); err != nil {
			return nil, err
		}
		if grantedExpiry == nil {
			grantedExpiry = req.RequestedExpiry
		}
		fields["status"] = StatusApproved
		fields["granted_permissions"] = granted
		fields["granted_expiry"] = grantedExpiry
	} else {
		fields["status"] = StatusRejected
	}

	// The pending guard inside ResolvePending is what makes double review
	// safe; everything above was only shaping the update.
	updated, err := s.Repo.ResolvePending(ctx, oid, fields)
	if err != nil {
		return nil, err
	}

	action := models.AuditPermReqRejected
	if input.Action == "approve" {
		action = models.AuditPermReqApproved
		s.applyGrants(ctx, updated, reviewer, granted, grantedExpiry)
	}

	s.AuditService.Record(ctx, models.AuditLog{
		Action:          action,
		Success:         true,
		Level:           models.AuditLevelInfo,
		UserID:          reviewer.ID.Hex(),
		UserEmail:       reviewer.Email,
		TargetUserID:    updated.RequesterID.Hex(),
		TargetUserEmail: updated.RequesterEmail,
		Resource:        "permission_request",
		Details: map[string]interface{}{
			"request_id":  updated.ID.Hex(),
			"collections": collectionNames(updated.Permissions),
		},
	})

	s.notifyRequester(ctx, updated)
	return updated, nil
}

// applyGrants merges the granted pairs into the requester's overrides. Each
// merge goes through the user service so it picks up the version guard, the
// session invalidation and the permissions audit entry.
func (s *PermissionRequestServiceImpl) applyGrants(ctx context.Context, req *PermissionRequest, reviewer *models.User, granted []RequestedPermission, expiry *time.Time) {
	for _, p := range granted {
		grant := permissions.Grant{
			Collection: p.Collection,
			SubRole:    p.SubRole,
			ExpiresAt:  expiry,
			GrantedBy:  reviewer.Email,
			GrantedAt:  time.Now(),
		}
		if _, err := s.Users.UpsertOverride(ctx, req.RequesterID.Hex(), grant); err != nil {
			// The request is already approved; a failed merge is surfaced in
			// the log and the audit trail rather than unwinding the approval.
			s.Logger.Error("approved permission grant failed to apply",
				zap.String("request_id", req.ID.Hex()),
				zap.String("requester_id", req.RequesterID.Hex()),
				zap.String("collection", string(p.Collection)),
				zap.Error(err))
			s.AuditService.Record(ctx, models.AuditLog{
				Action:          models.AuditPermReqApproved,
				Success:         false,
				Level:           models.AuditLevelError,
				UserID:          reviewer.ID.Hex(),
				UserEmail:       reviewer.Email,
				TargetUserID:    req.RequesterID.Hex(),
				TargetUserEmail: req.RequesterEmail,
				Resource:        "permission_request",
				ErrorMessage:    err.Error(),
				Details: map[string]interface{}{
					"request_id": req.ID.Hex(),
					"collection": string(p.Collection),
				},
			})
		}
	}
}

// ExpireStalePending closes out pending requests nobody reviewed within the
// staleness window. Invoked by the maintenance scheduler.
func (s *PermissionRequestServiceImpl) ExpireStalePending(ctx context.Context) (int, error) {
	stale, err := s.Repo.ExpirePendingBefore(ctx, time.Now().Add(-stalePendingAfter))
	if err != nil {
		return 0, err
	}

	for _, req := range stale {
		s.AuditService.Record(ctx, models.AuditLog{
			Action:          models.AuditPermReqExpired,
			Success:         true,
			Level:           models.AuditLevelInfo,
			TargetUserID:    req.RequesterID.Hex(),
			TargetUserEmail: req.RequesterEmail,
			Resource:        "permission_request",
			Details:         map[string]interface{}{"request_id": req.ID.Hex()},
		})
		if err := s.Notifications.Notify(ctx, req.RequesterID,
			"Permission request expired",
			"Your permission request was not reviewed in time and has expired.",
			notification.NotificationTypeWarning,
			"/permission-requests/"+req.ID.Hex(),
		); err != nil {
			s.Logger.Warn("expiry notification failed", zap.Error(err))
		}
	}
	return len(stale), nil
}

func (s *PermissionRequestServiceImpl) notifyAdmins(ctx context.Context, req *PermissionRequest) {
	admins, err := s.UserRepo.FindByRoles(ctx, []permissions.Role{permissions.RoleAdmin, permissions.RoleSuperAdmin})
	if err != nil {
		s.Logger.Warn("could not resolve admins for request notification", zap.Error(err))
		return
	}
	ids := make([]primitive.ObjectID, 0, len(admins))
	for _, admin := range admins {
		ids = append(ids, admin.ID)
	}
	s.Notifications.NotifyMany(ctx, ids,
		"New permission request",
		req.RequesterEmail+" requested access to "+joinCollections(req.Permissions),
		notification.NotificationTypeInfo,
		"/admin/permission-requests/"+req.ID.Hex(),
	)
}

func (s *PermissionRequestServiceImpl) notifyRequester(ctx context.Context, req *PermissionRequest) {
	title := "Permission request rejected"
	notifType := notification.NotificationTypeWarning
	message := "Your permission request was rejected."
	if req.Status == StatusApproved {
		title = "Permission request approved"
		notifType = notification.NotificationTypeSuccess
		message = "Your permission request was approved; the new access is active."
	}
	if err := s.Notifications.Notify(ctx, req.RequesterID, title, message, notifType,
		"/permission-requests/"+req.ID.Hex()); err != nil {
		s.Logger.Warn("review notification failed", zap.Error(err))
	}
}

func validatePermissionList(perms []RequestedPermission) error {
	if len(perms) == 0 {
		return ErrNoPermissions
	}
	seen := make(map[permissions.Collection]struct{}, len(perms))
	for _, p := range perms {
		if !permissions.ValidCollection(p.Collection) || !permissions.ValidSubRole(p.SubRole) {
			return ErrUnknownPermission
		}
		if _, dup := seen[p.Collection]; dup {
			return ErrDuplicatePermission
		}
		seen[p.Collection] = struct{}{}
	}
	return nil
}

// allHeld reports whether the subject can already perform every action the
// requested sub-roles would confer.
func allHeld(subject permissions.Subject, perms []RequestedPermission) bool {
	for _, p := range perms {
		for _, action := range permissions.SubRoleActions(p.SubRole) {
			if !subject.CanPerform(p.Collection, action) {
				return false
			}
		}
	}
	return true
}

// subsetOf rejects a granted set that reaches beyond the request: an unknown
// collection, or a sub-role whose action set exceeds the requested one on the
// same collection.
func subsetOf(granted, requested []RequestedPermission) error {
	for _, g := range granted {
		found := false
		for _, r := range requested {
			if g.Collection != r.Collection {
				continue
			}
			if !actionsWithin(g.SubRole, r.SubRole) {
				return ErrGrantNotRequested
			}
			found = true
			break
		}
		if !found {
			return ErrGrantNotRequested
		}
	}
	return validatePermissionList(granted)
}

// actionsWithin reports whether every action conferred by sub reads within
// the action set of limit. Sub-role sets are strictly nested, so this holds
// exactly for equal or lower sub-roles.
func actionsWithin(sub, limit permissions.SubRole) bool {
	allowed := make(map[permissions.Action]struct{})
	for _, a := range permissions.SubRoleActions(limit) {
		allowed[a] = struct{}{}
	}
	for _, a := range permissions.SubRoleActions(sub) {
		if _, ok := allowed[a]; !ok {
			return false
		}
	}
	return true
}

func validPriority(p RequestPriority) bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

func collectionNames(perms []RequestedPermission) []string {
	names := make([]string, 0, len(perms))
	for _, p := range perms {
		names = append(names, string(p.Collection))
	}
	return names
}

func joinCollections(perms []RequestedPermission) string {
	out := ""
	for i, p := range perms {
		if i > 0 {
			out += ", "
		}
		out += string(p.Collection)
	}
	return out
}
