package domain

// Bus channel names. The websocket hub subscribes to all of them.
const (
	ChannelStakes      = "stakes"
	ChannelWithdrawals = "withdrawals"
	ChannelRewards     = "rewards"
	ChannelOptions     = "options"
	ChannelAdmin       = "admin"
)

// StreamLedgerEvents is the durable stream mirroring every bus event.
const StreamLedgerEvents = "ledger:events"

// Event types carried in the "type" field of bus payloads.
const (
	EventStake                = "stake"
	EventWithdraw             = "withdraw"
	EventRewardsClaimed       = "rewards_claimed"
	EventOptionAdded          = "option_added"
	EventPaused               = "paused"
	EventOwnershipTransferred = "ownership_transferred"
	EventStakeOwnerAdded      = "stake_owner_added"
)
