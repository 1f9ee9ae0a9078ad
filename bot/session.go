package bot

import (
	"sync"
	"time"

	"mort/domain/entities"

	"github.com/shopspring/decimal"
)

// Step identifies where a chat session stands in a multi-message wizard
type Step string

const (
	StepRegisterUsername Step = "register_username"
	StepRegisterEmail    Step = "register_email"
	StepRegisterSecret   Step = "register_secret"
	StepRegisterConfirm  Step = "register_confirm"

	StepGameAmount Step = "game_amount"
	StepGameSecret Step = "game_secret"

	StepTransferDetails Step = "transfer_details"
	StepTransferSecret  Step = "transfer_secret"

	StepGuessNumber Step = "guess_number"
	StepGuessSecret Step = "guess_secret"
)

// Session is the in-memory conversation state for one chat. It only ever
// holds wizard scratch data; everything durable lives in the database. The
// secret is kept in plaintext between the two registration entry steps and
// is discarded as soon as the hash is written.
type Session struct {
	ChatID string
	Step   Step

	// Registration scratch
	Username string
	Email    string
	Secret   string

	// Wager scratch
	Game   entities.GameKind
	Choice int
	Amount decimal.Decimal

	// Transfer scratch
	TransferTo      string
	TransferToLabel string
	TransferAmount  decimal.Decimal

	// Lucky-number guess scratch
	RequestKey string
	Numbers    []int64
	GuessIndex int

	UpdatedAt time.Time
}

// SessionStore keeps per-chat sessions in memory. Sessions are advisory
// conversation state: losing them on restart only means the user restarts
// their current wizard.
type SessionStore struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	idleTimeout time.Duration
	now         func() time.Time
}

// NewSessionStore creates a store. A zero idleTimeout disables expiry.
func NewSessionStore(idleTimeout time.Duration) *SessionStore {
	return &SessionStore{
		sessions:    make(map[string]*Session),
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// Get returns the session for a chat, or nil. Expired sessions are dropped
// on access rather than by a background sweeper.
func (s *SessionStore) Get(chatID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[chatID]
	if !ok {
		return nil
	}
	if s.idleTimeout > 0 && s.now().Sub(session.UpdatedAt) > s.idleTimeout {
		delete(s.sessions, chatID)
		return nil
	}
	return session
}

// Put stores a session, stamping its last-activity time
func (s *SessionStore) Put(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session.UpdatedAt = s.now()
	s.sessions[session.ChatID] = session
}

// Clear drops the session for a chat
func (s *SessionStore) Clear(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, chatID)
}
