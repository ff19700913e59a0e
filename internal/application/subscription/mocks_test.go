package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/commercekit/subscriptions/internal/domain/channel"
	"github.com/commercekit/subscriptions/internal/domain/order"
	"github.com/commercekit/subscriptions/internal/domain/shared"
	"github.com/commercekit/subscriptions/internal/domain/subscription"
	"github.com/commercekit/subscriptions/internal/infrastructure/billing"
	"github.com/commercekit/subscriptions/internal/infrastructure/queue"
	"github.com/google/uuid"
)

// fakeOrderRepo is an in-memory order.Repository
type fakeOrderRepo struct {
	orders    map[uuid.UUID]*order.Order
	active    *order.Order
	activeErr error
	saveErr   error
	saveCount int
	hashes    map[uuid.UUID]string
	hashErr   error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders: make(map[uuid.UUID]*order.Order),
		hashes: make(map[uuid.UUID]string),
	}
}

func (r *fakeOrderRepo) add(o *order.Order) {
	r.orders[o.ID] = o
}

func (r *fakeOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return o, nil
}

func (r *fakeOrderRepo) FindByCode(ctx context.Context, code string) (*order.Order, error) {
	for _, o := range r.orders {
		if o.Code == code {
			return o, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeOrderRepo) FindByOrderLineID(ctx context.Context, lineID uuid.UUID) (*order.Order, error) {
	for _, o := range r.orders {
		if o.Line(lineID) != nil {
			return o, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeOrderRepo) FindBySubscriptionID(ctx context.Context, subscriptionID string) (*order.Order, error) {
	for _, o := range r.orders {
		for i := range o.Lines {
			for _, id := range o.Lines[i].SubscriptionIDs {
				if id == subscriptionID {
					return o, nil
				}
			}
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeOrderRepo) FindActiveByCustomer(ctx context.Context, channelToken string, customerID uuid.UUID) (*order.Order, error) {
	if r.activeErr != nil {
		return nil, r.activeErr
	}
	if r.active == nil {
		return nil, shared.ErrNotFound
	}
	return r.active, nil
}

func (r *fakeOrderRepo) Save(ctx context.Context, o *order.Order) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saveCount++
	r.orders[o.ID] = o
	return nil
}

func (r *fakeOrderRepo) UpdateLineSubscriptionHash(ctx context.Context, lineID uuid.UUID, hash string) error {
	if r.hashErr != nil {
		return r.hashErr
	}
	r.hashes[lineID] = hash
	for _, o := range r.orders {
		if l := o.Line(lineID); l != nil {
			l.SubscriptionHash = hash
		}
	}
	return nil
}

func (r *fakeOrderRepo) AddLineSubscriptionID(ctx context.Context, lineID uuid.UUID, subscriptionID string) error {
	for _, o := range r.orders {
		if l := o.Line(lineID); l != nil {
			l.SubscriptionIDs = append(l.SubscriptionIDs, subscriptionID)
			return nil
		}
	}
	return shared.ErrNotFound
}

// fakeHistoryRepo records appended entries in order
type fakeHistoryRepo struct {
	entries   []order.HistoryEntry
	appendErr error
}

func (r *fakeHistoryRepo) Append(ctx context.Context, entry *order.HistoryEntry) error {
	if r.appendErr != nil {
		return r.appendErr
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeHistoryRepo) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]order.HistoryEntry, error) {
	var out []order.HistoryEntry
	for _, e := range r.entries {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeHistoryRepo) ofType(t order.HistoryEntryType) []order.HistoryEntry {
	var out []order.HistoryEntry
	for _, e := range r.entries {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// fakePaymentMethodRepo serves a fixed set of payment methods
type fakePaymentMethodRepo struct {
	methods []channel.PaymentMethod
	err     error
}

func (r *fakePaymentMethodRepo) FindEnabledByChannel(ctx context.Context, channelToken string) ([]channel.PaymentMethod, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.methods, nil
}

func (r *fakePaymentMethodRepo) Save(ctx context.Context, m *channel.PaymentMethod) error {
	r.methods = append(r.methods, *m)
	return nil
}

// stripeMethod builds an enabled Stripe payment method for tests
func stripeMethod(channelToken string) channel.PaymentMethod {
	return channel.PaymentMethod{
		BaseEntity:   shared.NewBaseEntity(),
		ChannelToken: channelToken,
		Code:         "stripe",
		HandlerCode:  channel.StripeSubscriptionHandlerCode,
		Enabled:      true,
		Args: channel.ArgsMap{
			channel.ArgAPIKey:         "sk_test_123",
			channel.ArgWebhookSecret:  "whsec_test_123",
			channel.ArgPublishableKey: "pk_test_123",
		},
	}
}

// fakeStripeCustomerRepo holds at most one mapping
type fakeStripeCustomerRepo struct {
	mapping *channel.StripeCustomer
	findErr error
	saved   []channel.StripeCustomer
	saveErr error
}

func (r *fakeStripeCustomerRepo) FindByCustomer(ctx context.Context, channelToken string, customerID uuid.UUID) (*channel.StripeCustomer, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	if r.mapping == nil {
		return nil, shared.ErrNotFound
	}
	return r.mapping, nil
}

func (r *fakeStripeCustomerRepo) Save(ctx context.Context, c *channel.StripeCustomer) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saved = append(r.saved, *c)
	r.mapping = c
	return nil
}

// fakeScheduleRepo serves schedules by variant and ID
type fakeScheduleRepo struct {
	byVariant map[uuid.UUID]*subscription.Schedule
	byID      map[uuid.UUID]*subscription.Schedule
	findErr   error
}

func newFakeScheduleRepo() *fakeScheduleRepo {
	return &fakeScheduleRepo{
		byVariant: make(map[uuid.UUID]*subscription.Schedule),
		byID:      make(map[uuid.UUID]*subscription.Schedule),
	}
}

func (r *fakeScheduleRepo) attach(variantID uuid.UUID, s *subscription.Schedule) {
	r.byVariant[variantID] = s
	r.byID[s.ID] = s
}

func (r *fakeScheduleRepo) FindByID(ctx context.Context, id uuid.UUID) (*subscription.Schedule, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	s, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return s, nil
}

func (r *fakeScheduleRepo) FindByVariant(ctx context.Context, productVariantID uuid.UUID) (*subscription.Schedule, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	s, ok := r.byVariant[productVariantID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return s, nil
}

func (r *fakeScheduleRepo) List(ctx context.Context) ([]subscription.Schedule, error) {
	var out []subscription.Schedule
	for _, s := range r.byID {
		out = append(out, *s)
	}
	return out, nil
}

func (r *fakeScheduleRepo) Save(ctx context.Context, s *subscription.Schedule) error {
	r.byID[s.ID] = s
	return nil
}

func (r *fakeScheduleRepo) AttachVariant(ctx context.Context, scheduleID, productVariantID uuid.UUID) error {
	s, ok := r.byID[scheduleID]
	if !ok {
		return shared.ErrNotFound
	}
	r.byVariant[productVariantID] = s
	return nil
}

func (r *fakeScheduleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.byID, id)
	return nil
}

// fakeStrategy classifies a fixed set of variants as subscriptions
type fakeStrategy struct {
	subscriptionVariants map[uuid.UUID]bool
	err                  error
}

func (s *fakeStrategy) IsSubscription(ctx context.Context, productVariantID uuid.UUID) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.subscriptionVariants[productVariantID], nil
}

// fakeGateway records billing calls and returns canned outputs
type fakeGateway struct {
	customerInputs    []billing.CreateCustomerInput
	createCustomerErr error

	intentInputs []billing.CreatePaymentIntentInput
	intentErr    error

	priceInputs []billing.EnsurePriceInput
	priceErr    error

	subInputs []billing.CreateSubscriptionInput
	subErr    error
	subSeq    int

	cancelled  []string
	cancelErrs map[string]error
}

func (g *fakeGateway) CreateCustomer(ctx context.Context, input billing.CreateCustomerInput) (*billing.CustomerOutput, error) {
	if g.createCustomerErr != nil {
		return nil, g.createCustomerErr
	}
	g.customerInputs = append(g.customerInputs, input)
	return &billing.CustomerOutput{CustomerID: "cus_test_1", Email: input.Email, Name: input.Name}, nil
}

func (g *fakeGateway) CreatePaymentIntent(ctx context.Context, input billing.CreatePaymentIntentInput) (*billing.PaymentIntentOutput, error) {
	if g.intentErr != nil {
		return nil, g.intentErr
	}
	g.intentInputs = append(g.intentInputs, input)
	return &billing.PaymentIntentOutput{
		IntentID:     "pi_test_1",
		ClientSecret: "pi_test_1_secret",
		Amount:       input.Amount,
		Status:       "requires_payment_method",
	}, nil
}

func (g *fakeGateway) EnsurePrice(ctx context.Context, input billing.EnsurePriceInput) (string, error) {
	if g.priceErr != nil {
		return "", g.priceErr
	}
	g.priceInputs = append(g.priceInputs, input)
	return "price_test_1", nil
}

func (g *fakeGateway) CreateSubscription(ctx context.Context, input billing.CreateSubscriptionInput) (*billing.SubscriptionOutput, error) {
	if g.subErr != nil {
		return nil, g.subErr
	}
	g.subInputs = append(g.subInputs, input)
	g.subSeq++
	return &billing.SubscriptionOutput{
		SubscriptionID: fmt.Sprintf("sub_test_%d", g.subSeq),
		CustomerID:     input.CustomerID,
		Status:         "active",
	}, nil
}

func (g *fakeGateway) CancelSubscriptionAtPeriodEnd(ctx context.Context, apiKey, subscriptionID string) (*billing.SubscriptionOutput, error) {
	if err := g.cancelErrs[subscriptionID]; err != nil {
		return nil, err
	}
	g.cancelled = append(g.cancelled, subscriptionID)
	return &billing.SubscriptionOutput{SubscriptionID: subscriptionID, CancelAtPeriodEnd: true}, nil
}

var _ billing.Gateway = (*fakeGateway)(nil)

// fakeJobStore is an in-memory queue.Repository for enqueue assertions
type fakeJobStore struct {
	jobs       []*queue.Job
	enqueueErr error
}

func (s *fakeJobStore) Enqueue(ctx context.Context, jobs ...*queue.Job) error {
	if s.enqueueErr != nil {
		return s.enqueueErr
	}
	s.jobs = append(s.jobs, jobs...)
	return nil
}

func (s *fakeJobStore) ClaimDue(ctx context.Context, queues []string, now time.Time, limit int) ([]*queue.Job, error) {
	return nil, nil
}

func (s *fakeJobStore) Update(ctx context.Context, job *queue.Job) error { return nil }

func (s *fakeJobStore) FindByID(ctx context.Context, id uuid.UUID) (*queue.Job, error) {
	return nil, shared.ErrNotFound
}

func (s *fakeJobStore) FindDead(ctx context.Context, page, pageSize int) ([]*queue.Job, int64, error) {
	return nil, 0, nil
}

func (s *fakeJobStore) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (s *fakeJobStore) CountByStatus(ctx context.Context) (map[queue.JobStatus]int64, error) {
	return nil, nil
}

var _ queue.Repository = (*fakeJobStore)(nil)
