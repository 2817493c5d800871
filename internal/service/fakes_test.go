package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/civic-issue-service/internal/domain"
	"github.com/spec-kit/civic-issue-service/internal/repository"
)

// In-memory stores mirroring the conditional-update semantics of the
// Postgres repositories, so the services under test see the same sentinel
// errors a lost race would produce.

type fakeIssueRepo struct {
	mu        sync.Mutex
	issues    map[string]*domain.Issue
	timeline  map[string][]domain.TimelineEntry
	submitted map[string]int
	upvotes   map[string]map[string]bool
}

func newFakeIssueRepo() *fakeIssueRepo {
	return &fakeIssueRepo{
		issues:    make(map[string]*domain.Issue),
		timeline:  make(map[string][]domain.TimelineEntry),
		submitted: make(map[string]int),
		upvotes:   make(map[string]map[string]bool),
	}
}

func (r *fakeIssueRepo) Create(_ context.Context, issue *domain.Issue, entry *domain.TimelineEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	issue.ID = uuid.NewString()
	now := time.Now()
	issue.CreatedAt = now
	issue.UpdatedAt = now
	stored := *issue
	r.issues[issue.ID] = &stored
	r.submitted[issue.ReportedBy]++
	r.appendEntry(issue.ID, entry)
	return nil
}

func (r *fakeIssueRepo) appendEntry(issueID string, entry *domain.TimelineEntry) {
	if entry == nil {
		return
	}
	stored := *entry
	stored.ID = uuid.NewString()
	stored.IssueID = issueID
	stored.CreatedAt = time.Now()
	r.timeline[issueID] = append(r.timeline[issueID], stored)
}

func (r *fakeIssueRepo) GetByID(_ context.Context, id string) (*domain.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	issue, ok := r.issues[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *issue
	copied.UpvotedBy = nil
	for email := range r.upvotes[id] {
		copied.UpvotedBy = append(copied.UpvotedBy, email)
	}
	sort.Strings(copied.UpvotedBy)
	return &copied, nil
}

func (r *fakeIssueRepo) List(_ context.Context, filter repository.IssueFilter) ([]domain.Issue, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Issue
	for _, issue := range r.issues {
		if filter.ReportedBy != nil && issue.ReportedBy != *filter.ReportedBy {
			continue
		}
		if filter.AssignedTo != nil && (issue.AssignedTo == nil || *issue.AssignedTo != *filter.AssignedTo) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, issue.Status) {
			continue
		}
		if filter.Priority != nil && issue.Priority != *filter.Priority {
			continue
		}
		out = append(out, *issue)
	}
	sort.Slice(out, func(i, j int) bool {
		hi, hj := out[i].Priority == domain.IssuePriorityHigh, out[j].Priority == domain.IssuePriorityHigh
		if hi != hj {
			return hi
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, len(out), nil
}

func containsStatus(statuses []domain.IssueStatus, status domain.IssueStatus) bool {
	for _, candidate := range statuses {
		if candidate == status {
			return true
		}
	}
	return false
}

func (r *fakeIssueRepo) UpdateFields(_ context.Context, id string, update repository.IssueUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	issue, ok := r.issues[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if issue.Status != domain.IssueStatusPending {
		return repository.ErrNotPending
	}
	if update.Title != nil {
		issue.Title = *update.Title
	}
	if update.Category != nil {
		issue.Category = *update.Category
	}
	if update.Description != nil {
		issue.Description = *update.Description
	}
	if update.Location != nil {
		issue.Location = *update.Location
	}
	if update.ImageURL != nil {
		issue.ImageURL = *update.ImageURL
	}
	if update.EstimatedCost != nil {
		issue.EstimatedCost = update.EstimatedCost
	}
	issue.UpdatedAt = time.Now()
	return nil
}

func (r *fakeIssueRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	issue, ok := r.issues[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if issue.Status != domain.IssueStatusPending {
		return repository.ErrNotPending
	}
	delete(r.issues, id)
	delete(r.timeline, id)
	delete(r.upvotes, id)
	return nil
}

func (r *fakeIssueRepo) Assign(_ context.Context, id, staffEmail string, entry *domain.TimelineEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	issue, ok := r.issues[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if issue.AssignedTo != nil {
		return repository.ErrAlreadyAssigned
	}
	if issue.Status != domain.IssueStatusPending {
		return repository.ErrNotPending
	}
	issue.AssignedTo = &staffEmail
	issue.UpdatedAt = time.Now()
	r.appendEntry(id, entry)
	return nil
}

func (r *fakeIssueRepo) Reject(_ context.Context, id string, entry *domain.TimelineEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	issue, ok := r.issues[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if issue.AssignedTo != nil {
		return repository.ErrAlreadyAssigned
	}
	if issue.Status != domain.IssueStatusPending {
		return repository.ErrNotPending
	}
	issue.Status = domain.IssueStatusRejected
	issue.UpdatedAt = time.Now()
	r.appendEntry(id, entry)
	return nil
}

func (r *fakeIssueRepo) Transition(_ context.Context, id string, from, to domain.IssueStatus, staffEmail string, entry *domain.TimelineEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	issue, ok := r.issues[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if issue.Status != from || issue.AssignedTo == nil || *issue.AssignedTo != staffEmail {
		return repository.ErrInvalidTransition
	}
	issue.Status = to
	now := time.Now()
	issue.UpdatedAt = now
	switch to {
	case domain.IssueStatusResolved:
		issue.ResolvedAt = &now
	case domain.IssueStatusClosed:
		issue.ClosedAt = &now
	}
	r.appendEntry(id, entry)
	return nil
}

func (r *fakeIssueRepo) Upvote(_ context.Context, id, email string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	issue, ok := r.issues[id]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	if r.upvotes[id] == nil {
		r.upvotes[id] = make(map[string]bool)
	}
	if r.upvotes[id][email] {
		return 0, repository.ErrAlreadyUpvoted
	}
	r.upvotes[id][email] = true
	issue.UpvoteCount++
	return issue.UpvoteCount, nil
}

func (r *fakeIssueRepo) CountByReporter(_ context.Context, email string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.submitted[email], nil
}

func (r *fakeIssueRepo) CountByStatus(_ context.Context) (map[domain.IssueStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[domain.IssueStatus]int)
	for _, issue := range r.issues {
		out[issue.Status]++
	}
	return out, nil
}

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[string]*domain.Account)}
}

func (r *fakeAccountRepo) put(account *domain.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	copied := *account
	r.accounts[account.Email] = &copied
}

func (r *fakeAccountRepo) UpsertByEmail(_ context.Context, email, name, photoURL string, role domain.Role) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.accounts[email]; ok {
		copied := *existing
		return &copied, nil
	}
	account := &domain.Account{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		PhotoURL:  photoURL,
		Role:      role,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	r.accounts[email] = account
	copied := *account
	return &copied, nil
}

func (r *fakeAccountRepo) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *account
	return &copied, nil
}

func (r *fakeAccountRepo) UpdateProfile(_ context.Context, email, name, photoURL string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	account.Name = name
	account.PhotoURL = photoURL
	account.UpdatedAt = time.Now()
	copied := *account
	return &copied, nil
}

func (r *fakeAccountRepo) SetBlocked(_ context.Context, email string, blocked bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[email]
	if !ok {
		return pgx.ErrNoRows
	}
	account.IsBlocked = blocked
	return nil
}

func (r *fakeAccountRepo) CreateStaff(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account.ID = uuid.NewString()
	copied := *account
	r.accounts[account.Email] = &copied
	return nil
}

func (r *fakeAccountRepo) UpdateStaff(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.accounts[account.Email]
	if !ok || existing.Role != domain.RoleStaff {
		return pgx.ErrNoRows
	}
	copied := *account
	r.accounts[account.Email] = &copied
	return nil
}

func (r *fakeAccountRepo) DeleteStaff(_ context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.accounts[email]
	if !ok || existing.Role != domain.RoleStaff {
		return pgx.ErrNoRows
	}
	delete(r.accounts, email)
	return nil
}

func (r *fakeAccountRepo) List(_ context.Context, role *domain.Role, _, _ int) ([]domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Account
	for _, account := range r.accounts {
		if role != nil && account.Role != *role {
			continue
		}
		out = append(out, *account)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (r *fakeAccountRepo) CountByRole(_ context.Context, role domain.Role) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, account := range r.accounts {
		if account.Role == role {
			count++
		}
	}
	return count, nil
}

type fakePaymentRepo struct {
	mu       sync.Mutex
	accounts *fakeAccountRepo
	issues   *fakeIssueRepo
	records  []domain.PaymentRecord
	txids    map[string]bool
}

func newFakePaymentRepo(accounts *fakeAccountRepo, issues *fakeIssueRepo) *fakePaymentRepo {
	return &fakePaymentRepo{accounts: accounts, issues: issues, txids: make(map[string]bool)}
}

func (r *fakePaymentRepo) CreateSubscription(_ context.Context, record *domain.PaymentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.txids[record.TransactionID] {
		return repository.ErrDuplicateTransaction
	}
	r.accounts.mu.Lock()
	account, ok := r.accounts.accounts[record.PayerEmail]
	if ok && account.IsPremium {
		r.accounts.mu.Unlock()
		return repository.ErrAlreadyPremium
	}
	if ok {
		account.IsPremium = true
	}
	r.accounts.mu.Unlock()

	r.book(record)
	return nil
}

func (r *fakePaymentRepo) CreateBoost(_ context.Context, record *domain.PaymentRecord, issueID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.txids[record.TransactionID] {
		return repository.ErrDuplicateTransaction
	}
	r.issues.mu.Lock()
	issue, ok := r.issues.issues[issueID]
	if !ok {
		r.issues.mu.Unlock()
		return pgx.ErrNoRows
	}
	if issue.Priority == domain.IssuePriorityHigh {
		r.issues.mu.Unlock()
		return repository.ErrAlreadyBoosted
	}
	issue.Priority = domain.IssuePriorityHigh
	r.issues.mu.Unlock()

	r.book(record)
	return nil
}

func (r *fakePaymentRepo) book(record *domain.PaymentRecord) {
	record.ID = uuid.NewString()
	record.PaidAt = time.Now()
	r.txids[record.TransactionID] = true
	r.records = append(r.records, *record)
}

func (r *fakePaymentRepo) ListByPayer(_ context.Context, email string) ([]domain.PaymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.PaymentRecord
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].PayerEmail == email {
			out = append(out, r.records[i])
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) ListAll(_ context.Context, _, _ int) ([]domain.PaymentRecord, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, record := range r.records {
		total += record.Amount
	}
	out := make([]domain.PaymentRecord, len(r.records))
	copy(out, r.records)
	return out, total, nil
}

type fakeTimelineRepo struct {
	issues *fakeIssueRepo
}

func (r *fakeTimelineRepo) ListByIssue(_ context.Context, issueID string) ([]domain.TimelineEntry, error) {
	r.issues.mu.Lock()
	defer r.issues.mu.Unlock()
	entries := r.issues.timeline[issueID]
	out := make([]domain.TimelineEntry, len(entries))
	copy(out, entries)
	return out, nil
}
