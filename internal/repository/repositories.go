package repository

import "github.com/jackc/pgx/v5/pgxpool"

// Repositories groups every store the workflows read and write.
type Repositories struct {
	Tickets       TicketRepository
	Escalations   EscalationRepository
	Responses     ResponseRepository
	Activity      ActivityRepository
	Agents        AgentRepository
	AdminProfiles AdminProfileRepository
	Channels      ChannelRepository
}

// NewPostgresRepositories builds every repository on one pool.
func NewPostgresRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Tickets:       NewTicketRepository(pool),
		Escalations:   NewEscalationRepository(pool),
		Responses:     NewResponseRepository(pool),
		Activity:      NewActivityRepository(pool),
		Agents:        NewAgentRepository(pool),
		AdminProfiles: NewAdminProfileRepository(pool),
		Channels:      NewChannelRepository(pool),
	}
}
