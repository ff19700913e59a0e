package shared

// BaseAggregateRoot provides common fields for aggregate roots. Aggregates
// collect the domain events raised by their behavior; the services that save
// an aggregate publish and clear them.
type BaseAggregateRoot struct {
	BaseEntity
	domainEvents []DomainEvent `gorm:"-"`
}

// AddDomainEvent adds a domain event to be published
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

// GetDomainEvents returns all pending domain events
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.domainEvents
}

// ClearDomainEvents clears the pending domain events
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}

// NewBaseAggregateRoot creates a new base aggregate root
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity:   NewBaseEntity(),
		domainEvents: make([]DomainEvent, 0),
	}
}

// ChannelAggregateRoot extends BaseAggregateRoot with sales-channel scoping
type ChannelAggregateRoot struct {
	BaseAggregateRoot
	ChannelToken string `gorm:"not null;index"`
}

// NewChannelAggregateRoot creates a new channel-scoped aggregate root
func NewChannelAggregateRoot(channelToken string) ChannelAggregateRoot {
	return ChannelAggregateRoot{
		BaseAggregateRoot: NewBaseAggregateRoot(),
		ChannelToken:      channelToken,
	}
}
