package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/stakevault/internal/domain"
)

const positionSelectCols = `id, account, stake_token, reward_token, amount::text, rewards::text,
	start_at, end_at, last_claimed,
	opt_period_in_days, opt_bonus_in_percentage, opt_reward_token, opt_deposit_type, opt_created_at,
	option_index, status`

// PositionStore implements domain.PositionStore over PostgreSQL. Each
// account's positions form a dense list keyed by (account, idx); RemoveAt
// keeps the list dense by moving the highest index into the freed slot.
type PositionStore struct {
	pool *pgxpool.Pool
}

var _ domain.PositionStore = (*PositionStore)(nil)

// NewPositionStore creates a PositionStore backed by the given client.
func NewPositionStore(c *Client) *PositionStore {
	return &PositionStore{pool: c.Pool()}
}

// Append adds a position to the account's list and returns its index.
func (s *PositionStore) Append(ctx context.Context, pos domain.StakePosition) (int, error) {
	const q = `
		INSERT INTO stake_positions
			(account, idx, id, stake_token, reward_token, amount, rewards,
			 start_at, end_at, last_claimed,
			 opt_period_in_days, opt_bonus_in_percentage, opt_reward_token, opt_deposit_type, opt_created_at,
			 option_index, status)
		VALUES
			($1, (SELECT COALESCE(MAX(idx) + 1, 0) FROM stake_positions WHERE account = $1),
			 $2, $3, $4, $5::numeric, $6::numeric, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING idx`

	var idx int
	err := s.pool.QueryRow(ctx, q,
		addrKey(pos.Account),
		pos.ID,
		addrKey(pos.StakeToken),
		addrKey(pos.RewardToken),
		pos.Amount.String(),
		pos.Rewards.String(),
		pos.Start,
		pos.End,
		pos.LastClaimed,
		pos.Option.PeriodInDays,
		pos.Option.BonusInPercentage,
		addrKey(pos.Option.RewardToken),
		string(pos.Option.DepositType),
		pos.Option.CreatedAt,
		pos.OptionIndex,
		string(pos.Status),
	).Scan(&idx)
	if err != nil {
		return 0, fmt.Errorf("postgres: append position: %w", err)
	}
	return idx, nil
}

// Get returns the position at the given index, or ErrIndexOutOfRange.
func (s *PositionStore) Get(ctx context.Context, account common.Address, index int) (domain.StakePosition, error) {
	q := `SELECT ` + positionSelectCols + ` FROM stake_positions WHERE account = $1 AND idx = $2`

	pos, err := scanPositionRow(s.pool.QueryRow(ctx, q, addrKey(account), index))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.StakePosition{}, domain.ErrIndexOutOfRange
		}
		return domain.StakePosition{}, fmt.Errorf("postgres: get position: %w", err)
	}
	return pos, nil
}

// Update replaces the position at the given index.
func (s *PositionStore) Update(ctx context.Context, account common.Address, index int, pos domain.StakePosition) error {
	const q = `
		UPDATE stake_positions SET
			id = $3, stake_token = $4, reward_token = $5,
			amount = $6::numeric, rewards = $7::numeric,
			start_at = $8, end_at = $9, last_claimed = $10,
			opt_period_in_days = $11, opt_bonus_in_percentage = $12,
			opt_reward_token = $13, opt_deposit_type = $14, opt_created_at = $15,
			option_index = $16, status = $17
		WHERE account = $1 AND idx = $2`

	tag, err := s.pool.Exec(ctx, q,
		addrKey(account),
		index,
		pos.ID,
		addrKey(pos.StakeToken),
		addrKey(pos.RewardToken),
		pos.Amount.String(),
		pos.Rewards.String(),
		pos.Start,
		pos.End,
		pos.LastClaimed,
		pos.Option.PeriodInDays,
		pos.Option.BonusInPercentage,
		addrKey(pos.Option.RewardToken),
		string(pos.Option.DepositType),
		pos.Option.CreatedAt,
		pos.OptionIndex,
		string(pos.Status),
	)
	if err != nil {
		return fmt.Errorf("postgres: update position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrIndexOutOfRange
	}
	return nil
}

// RemoveAt deletes the position at index via swap-remove and returns the
// removed position. The whole swap runs in one transaction so concurrent
// readers never observe a gap in the index sequence.
func (s *PositionStore) RemoveAt(ctx context.Context, account common.Address, index int) (domain.StakePosition, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.StakePosition{}, fmt.Errorf("postgres: begin remove: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	key := addrKey(account)

	q := `SELECT ` + positionSelectCols + ` FROM stake_positions WHERE account = $1 AND idx = $2 FOR UPDATE`
	removed, err := scanPositionRow(tx.QueryRow(ctx, q, key, index))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.StakePosition{}, domain.ErrIndexOutOfRange
		}
		return domain.StakePosition{}, fmt.Errorf("postgres: remove position: %w", err)
	}

	var maxIdx int
	err = tx.QueryRow(ctx,
		`SELECT MAX(idx) FROM stake_positions WHERE account = $1`, key,
	).Scan(&maxIdx)
	if err != nil {
		return domain.StakePosition{}, fmt.Errorf("postgres: remove position: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM stake_positions WHERE account = $1 AND idx = $2`, key, index,
	); err != nil {
		return domain.StakePosition{}, fmt.Errorf("postgres: remove position: %w", err)
	}

	if maxIdx != index {
		if _, err := tx.Exec(ctx,
			`UPDATE stake_positions SET idx = $3 WHERE account = $1 AND idx = $2`,
			key, maxIdx, index,
		); err != nil {
			return domain.StakePosition{}, fmt.Errorf("postgres: remove position: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.StakePosition{}, fmt.Errorf("postgres: commit remove: %w", err)
	}
	return removed, nil
}

// List returns all of an account's positions in index order.
func (s *PositionStore) List(ctx context.Context, account common.Address) ([]domain.StakePosition, error) {
	q := `SELECT ` + positionSelectCols + ` FROM stake_positions WHERE account = $1 ORDER BY idx`

	rows, err := s.pool.Query(ctx, q, addrKey(account))
	if err != nil {
		return nil, fmt.Errorf("postgres: list positions: %w", err)
	}
	defer rows.Close()

	var positions []domain.StakePosition
	for rows.Next() {
		pos, err := scanPositionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan position: %w", err)
		}
		positions = append(positions, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list positions: %w", err)
	}
	return positions, nil
}

// Count returns the number of open positions for an account.
func (s *PositionStore) Count(ctx context.Context, account common.Address) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM stake_positions WHERE account = $1`, addrKey(account),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count positions: %w", err)
	}
	return n, nil
}

func scanPositionRow(row pgx.Row) (domain.StakePosition, error) {
	var (
		pos            domain.StakePosition
		account        string
		stakeToken     string
		rewardToken    string
		amount         string
		rewards        string
		optRewardToken string
		optDepositType string
		status         string
	)
	err := row.Scan(
		&pos.ID,
		&account,
		&stakeToken,
		&rewardToken,
		&amount,
		&rewards,
		&pos.Start,
		&pos.End,
		&pos.LastClaimed,
		&pos.Option.PeriodInDays,
		&pos.Option.BonusInPercentage,
		&optRewardToken,
		&optDepositType,
		&pos.Option.CreatedAt,
		&pos.OptionIndex,
		&status,
	)
	if err != nil {
		return domain.StakePosition{}, err
	}

	pos.Account = common.HexToAddress(account)
	pos.StakeToken = common.HexToAddress(stakeToken)
	pos.RewardToken = common.HexToAddress(rewardToken)
	pos.Option.RewardToken = common.HexToAddress(optRewardToken)
	pos.Option.DepositType = domain.DepositType(optDepositType)
	pos.Status = domain.PositionStatus(status)

	if pos.Amount, err = parseBig(amount); err != nil {
		return domain.StakePosition{}, err
	}
	if pos.Rewards, err = parseBig(rewards); err != nil {
		return domain.StakePosition{}, err
	}
	return pos, nil
}
