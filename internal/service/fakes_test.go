package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mansoorceksport/learnify/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memUserRepo is an in-memory domain.UserRepository
type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
	// failSetSubscription makes SetSubscription fail when set
	failSetSubscription error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[string]*domain.User{}}
}

func (r *memUserRepo) add(u *domain.User) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == "" {
		u.ID = primitive.NewObjectID().Hex()
	}
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	cp := *u
	r.users[u.ID] = &cp
	return u
}

func (r *memUserRepo) get(id string) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

func (r *memUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return domain.ErrConflict
		}
	}
	user.ID = primitive.NewObjectID().Hex()
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if u := r.get(id); u != nil {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memUserRepo) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ResetPasswordToken == tokenHash && u.ResetPasswordExpire != nil && u.ResetPasswordExpire.After(now) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memUserRepo) GetAll(ctx context.Context) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memUserRepo) Update(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.users[user.ID]
	if !ok {
		return domain.ErrNotFound
	}
	cp := *user
	cp.Subscription = existing.Subscription
	r.users[user.ID] = &cp
	return nil
}

func (r *memUserRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *memUserRepo) SetSubscription(ctx context.Context, userID string, sub domain.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSetSubscription != nil {
		return r.failSetSubscription
	}
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.Subscription = sub
	return nil
}

func (r *memUserRepo) ClearSubscription(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.Subscription = domain.Subscription{}
	return nil
}

func (r *memUserRepo) CountAll(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}

func (r *memUserRepo) CountActiveSubscriptions(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, u := range r.users {
		if u.Subscription.Status == domain.SubscriptionActive {
			n++
		}
	}
	return n, nil
}

// memPaymentRepo is an in-memory domain.PaymentRepository
type memPaymentRepo struct {
	mu       sync.Mutex
	payments map[string]*domain.Payment
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{payments: map[string]*domain.Payment{}}
}

func (r *memPaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.payments {
		if existing.SubscriptionID == p.SubscriptionID {
			return domain.ErrConflict
		}
	}
	p.ID = primitive.NewObjectID().Hex()
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *memPaymentRepo) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.SubscriptionID == subscriptionID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memPaymentRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.payments, id)
	return nil
}

func (r *memPaymentRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payments)
}

// memCourseRepo is an in-memory domain.CourseRepository
type memCourseRepo struct {
	mu      sync.Mutex
	courses map[string]*domain.Course
}

func newMemCourseRepo() *memCourseRepo {
	return &memCourseRepo{courses: map[string]*domain.Course{}}
}

func (r *memCourseRepo) Create(ctx context.Context, c *domain.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = primitive.NewObjectID().Hex()
	cp := *c
	cp.Lectures = append([]domain.Lecture(nil), c.Lectures...)
	r.courses[c.ID] = &cp
	return nil
}

func (r *memCourseRepo) GetByID(ctx context.Context, id string) (*domain.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.courses[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	cp.Lectures = append([]domain.Lecture(nil), c.Lectures...)
	return &cp, nil
}

func (r *memCourseRepo) GetAll(ctx context.Context, filter domain.CourseFilter) ([]*domain.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Course
	for _, c := range r.courses {
		if !strings.Contains(strings.ToLower(c.Title), strings.ToLower(filter.Keyword)) {
			continue
		}
		if !strings.Contains(strings.ToLower(c.Category), strings.ToLower(filter.Category)) {
			continue
		}
		cp := *c
		cp.Lectures = nil
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memCourseRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.courses[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.courses, id)
	return nil
}

func (r *memCourseRepo) IncrementViews(ctx context.Context, id string) (*domain.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.courses[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c.Views++
	cp := *c
	cp.Lectures = append([]domain.Lecture(nil), c.Lectures...)
	return &cp, nil
}

func (r *memCourseRepo) AddLecture(ctx context.Context, courseID string, l domain.Lecture) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.courses[courseID]
	if !ok {
		return domain.ErrNotFound
	}
	c.Lectures = append(c.Lectures, l)
	c.NumOfVideos = len(c.Lectures)
	return nil
}

func (r *memCourseRepo) RemoveLecture(ctx context.Context, courseID, lectureID string) (*domain.Lecture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.courses[courseID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	for i, l := range c.Lectures {
		if l.ID == lectureID {
			c.Lectures = append(c.Lectures[:i:i], c.Lectures[i+1:]...)
			c.NumOfVideos = len(c.Lectures)
			return &l, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memCourseRepo) SumViews(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, c := range r.courses {
		total += c.Views
	}
	return total, nil
}

func (r *memCourseRepo) setViews(id string, views int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.courses[id].Views = views
}

// memStatsRepo is an in-memory domain.StatsRepository, oldest first
type memStatsRepo struct {
	mu        sync.Mutex
	snapshots []*domain.StatsSnapshot
}

func (r *memStatsRepo) Latest(ctx context.Context, n int) ([]*domain.StatsSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.StatsSnapshot{}
	for i := len(r.snapshots) - 1; i >= 0 && len(out) < n; i-- {
		cp := *r.snapshots[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memStatsRepo) Current(ctx context.Context) (*domain.StatsSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snapshots) == 0 {
		return nil, domain.ErrStatsNotBootstrapped
	}
	cp := *r.snapshots[len(r.snapshots)-1]
	return &cp, nil
}

func (r *memStatsRepo) Insert(ctx context.Context, s *domain.StatsSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = primitive.NewObjectID().Hex()
	cp := *s
	r.snapshots = append(r.snapshots, &cp)
	return nil
}

func (r *memStatsRepo) SetViews(ctx context.Context, views int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snapshots) == 0 {
		return domain.ErrStatsNotBootstrapped
	}
	r.snapshots[len(r.snapshots)-1].Views = views
	return nil
}

func (r *memStatsRepo) SetUserCounts(ctx context.Context, users, subscriptions int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snapshots) == 0 {
		return domain.ErrStatsNotBootstrapped
	}
	cur := r.snapshots[len(r.snapshots)-1]
	cur.Users = users
	cur.Subscription = subscriptions
	return nil
}

func (r *memStatsRepo) Rotate(ctx context.Context, now time.Time) (*domain.StatsSnapshot, error) {
	r.mu.Lock()
	if n := len(r.snapshots); n > 0 {
		sealed := now
		r.snapshots[n-1].SealedAt = &sealed
	}
	r.mu.Unlock()

	next := &domain.StatsSnapshot{CreatedAt: now, UpdatedAt: now}
	if err := r.Insert(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

func (r *memStatsRepo) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

// memFiles is an in-memory domain.FileRepository
type memFiles struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newMemFiles() *memFiles {
	return &memFiles{objects: map[string][]byte{}}
}

func (f *memFiles) Upload(ctx context.Context, file []byte, key string, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = file
	return "https://media.test/learnify/" + key, nil
}

func (f *memFiles) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *memFiles) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

// recordingMailer keeps sent messages in memory
type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

type sentMail struct {
	to, subject, body string
}

func (m *recordingMailer) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func (m *recordingMailer) last() sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentMail{}
	}
	return m.sent[len(m.sent)-1]
}

// failingLock is a domain.PeriodLock whose store is unavailable
type failingLock struct {
	err error
}

func (l *failingLock) Acquire(ctx context.Context, period string) (bool, error) {
	return false, l.err
}

func (l *failingLock) Release(ctx context.Context, period string) error {
	return l.err
}

// flakyStatsRepo fails the next Rotate or Insert once, then behaves like memStatsRepo
type flakyStatsRepo struct {
	*memStatsRepo
	failRotate error
	failInsert error
}

func (r *flakyStatsRepo) Rotate(ctx context.Context, now time.Time) (*domain.StatsSnapshot, error) {
	if err := r.failRotate; err != nil {
		r.failRotate = nil
		return nil, err
	}
	return r.memStatsRepo.Rotate(ctx, now)
}

func (r *flakyStatsRepo) Insert(ctx context.Context, s *domain.StatsSnapshot) error {
	if err := r.failInsert; err != nil {
		r.failInsert = nil
		return err
	}
	return r.memStatsRepo.Insert(ctx, s)
}

// countingRefresher records aggregator notifications
type countingRefresher struct {
	mu             sync.Mutex
	users, courses int
}

func (r *countingRefresher) NotifyUsers() {
	r.mu.Lock()
	r.users++
	r.mu.Unlock()
}

func (r *countingRefresher) NotifyCourses() {
	r.mu.Lock()
	r.courses++
	r.mu.Unlock()
}
