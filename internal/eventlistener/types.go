package eventlistener

import (
	"time"
)

const (
	// PumpFunProgramID is the program whose logs are subscribed to.
	PumpFunProgramID = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"

	createInstructionMarker = "Program log: Instruction: Create"
	programDataPrefix       = "Program data: "

	DefaultHeartbeatInterval = time.Second
	DefaultReconnectDelay    = 30 * time.Second
	DefaultMaxReconnectDelay = 5 * time.Minute
	DefaultSubscriberBuffer  = 64
	DefaultCommitment        = "processed"
)

// CreationEvent describes a freshly created token decoded from program logs.
type CreationEvent struct {
	AssetID      string    `json:"mint"`
	Name         string    `json:"name"`
	Symbol       string    `json:"symbol"`
	URI          string    `json:"uri"`
	BondingCurve string    `json:"bondingCurve"`
	Creator      string    `json:"user"`
	Signature    string    `json:"signature,omitempty"`
	ReceivedAt   time.Time `json:"-"`
}

// State is the lifecycle of the websocket session.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateSubscribed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	default:
		return "unknown"
	}
}

// ReconnectPolicy selects how the delay between reconnect attempts evolves.
type ReconnectPolicy string

const (
	PolicyFixed       ReconnectPolicy = "fixed"
	PolicyExponential ReconnectPolicy = "exponential"
)

// Config holds listener settings. Zero values fall back to defaults.
type Config struct {
	URL               string
	ProgramID         string
	Commitment        string
	HeartbeatInterval time.Duration
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	Policy            ReconnectPolicy
	SubscriberBuffer  int

	// OnStateChange is invoked after every state transition.
	OnStateChange func(State)
	// OnDecodeError is invoked for every undecodable log line.
	OnDecodeError func(error)
}

func (c Config) withDefaults() Config {
	if c.ProgramID == "" {
		c.ProgramID = PumpFunProgramID
	}
	if c.Commitment == "" {
		c.Commitment = DefaultCommitment
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}
	if c.MaxReconnectDelay < c.ReconnectDelay {
		c.MaxReconnectDelay = DefaultMaxReconnectDelay
		if c.MaxReconnectDelay < c.ReconnectDelay {
			c.MaxReconnectDelay = c.ReconnectDelay
		}
	}
	if c.Policy == "" {
		c.Policy = PolicyFixed
	}
	if c.SubscriberBuffer <= 0 {
		c.SubscriberBuffer = DefaultSubscriberBuffer
	}
	return c
}
