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

const optionSelectCols = `period_in_days, bonus_in_percentage, reward_token, deposit_type, created_at`

// OptionStore implements domain.OptionStore over PostgreSQL. Catalogs are
// append-only; the idx column is assigned at insert and never reused.
type OptionStore struct {
	pool *pgxpool.Pool
}

var _ domain.OptionStore = (*OptionStore)(nil)

// NewOptionStore creates an OptionStore backed by the given client.
func NewOptionStore(c *Client) *OptionStore {
	return &OptionStore{pool: c.Pool()}
}

// Append adds an option to the token's catalog and returns its index.
func (s *OptionStore) Append(ctx context.Context, token common.Address, opt domain.StakeOption) (int, error) {
	const q = `
		INSERT INTO stake_options
			(stake_token, idx, period_in_days, bonus_in_percentage, reward_token, deposit_type, created_at)
		VALUES
			($1, (SELECT COALESCE(MAX(idx) + 1, 0) FROM stake_options WHERE stake_token = $1),
			 $2, $3, $4, $5, $6)
		RETURNING idx`

	var idx int
	err := s.pool.QueryRow(ctx, q,
		addrKey(token),
		opt.PeriodInDays,
		opt.BonusInPercentage,
		addrKey(opt.RewardToken),
		string(opt.DepositType),
		opt.CreatedAt,
	).Scan(&idx)
	if err != nil {
		return 0, fmt.Errorf("postgres: append option: %w", err)
	}
	return idx, nil
}

// Get returns the option at the given index, or ErrIndexOutOfRange.
func (s *OptionStore) Get(ctx context.Context, token common.Address, index int) (domain.StakeOption, error) {
	q := `SELECT ` + optionSelectCols + ` FROM stake_options WHERE stake_token = $1 AND idx = $2`

	opt, err := scanOptionRow(s.pool.QueryRow(ctx, q, addrKey(token), index))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.StakeOption{}, domain.ErrIndexOutOfRange
		}
		return domain.StakeOption{}, fmt.Errorf("postgres: get option: %w", err)
	}
	return opt, nil
}

// List returns the full catalog for a token, in append order.
func (s *OptionStore) List(ctx context.Context, token common.Address) ([]domain.StakeOption, error) {
	q := `SELECT ` + optionSelectCols + ` FROM stake_options WHERE stake_token = $1 ORDER BY idx`

	rows, err := s.pool.Query(ctx, q, addrKey(token))
	if err != nil {
		return nil, fmt.Errorf("postgres: list options: %w", err)
	}
	defer rows.Close()

	var opts []domain.StakeOption
	for rows.Next() {
		opt, err := scanOptionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan option: %w", err)
		}
		opts = append(opts, opt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list options: %w", err)
	}
	return opts, nil
}

func scanOptionRow(row pgx.Row) (domain.StakeOption, error) {
	var (
		opt         domain.StakeOption
		rewardToken string
		depositType string
	)
	err := row.Scan(
		&opt.PeriodInDays,
		&opt.BonusInPercentage,
		&rewardToken,
		&depositType,
		&opt.CreatedAt,
	)
	if err != nil {
		return domain.StakeOption{}, err
	}
	opt.RewardToken = common.HexToAddress(rewardToken)
	opt.DepositType = domain.DepositType(depositType)
	return opt, nil
}
