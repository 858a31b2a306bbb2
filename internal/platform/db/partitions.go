package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Partition names the two physical stores holding the sample data at
// different retention stages. Both expose the same schema; reports union
// them so callers see one logical record set.
type Partition string

const (
	PartitionArchive Partition = "archive"
	PartitionMaster  Partition = "master"
)

// Partitions holds one pool per physical partition.
type Partitions struct {
	Archive *pgxpool.Pool
	Master  *pgxpool.Pool
}

// newPartitionPool opens and verifies one partition's pool. Each partition
// dials with its own application_name so archive and master load can be told
// apart in pg_stat_activity, and idle report connections are trimmed between
// dashboard refreshes instead of pinning both stores.
func newPartitionPool(ctx context.Context, part Partition, databaseURL string, maxConns, minConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s partition: parse database url: %w", part, err)
	}

	cfg.MaxConns = maxConns
	cfg.MinConns = minConns
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.ConnConfig.RuntimeParams["application_name"] = "screening-reports-" + string(part)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s partition: create connection pool: %w", part, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s partition: ping: %w", part, err)
	}
	return pool, nil
}

// NewPartitions opens both pools and verifies connectivity. If the second
// pool fails to open, the first is closed before returning.
func NewPartitions(ctx context.Context, archiveURL, masterURL string, maxConns, minConns int32) (*Partitions, error) {
	archive, err := newPartitionPool(ctx, PartitionArchive, archiveURL, maxConns, minConns)
	if err != nil {
		return nil, err
	}

	master, err := newPartitionPool(ctx, PartitionMaster, masterURL, maxConns, minConns)
	if err != nil {
		archive.Close()
		return nil, err
	}

	return &Partitions{Archive: archive, Master: master}, nil
}

// Each invokes fn once per partition, in a fixed order (archive first), and
// stops at the first error. Repositories use it to fan a query out over both
// stores before merging rows.
func (p *Partitions) Each(fn func(part Partition, pool *pgxpool.Pool) error) error {
	if err := fn(PartitionArchive, p.Archive); err != nil {
		return err
	}
	return fn(PartitionMaster, p.Master)
}

// Ping verifies both partitions are reachable.
func (p *Partitions) Ping(ctx context.Context) error {
	if err := p.Archive.Ping(ctx); err != nil {
		return fmt.Errorf("archive partition: %w", err)
	}
	if err := p.Master.Ping(ctx); err != nil {
		return fmt.Errorf("master partition: %w", err)
	}
	return nil
}

// Close closes both pools.
func (p *Partitions) Close() {
	p.Archive.Close()
	p.Master.Close()
}
