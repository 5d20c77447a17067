package grpcx

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/inference-sim/pisim/sim"
	"github.com/inference-sim/pisim/sim/comm"
)

// abortTimeout bounds the best-effort Abort RPC.
const abortTimeout = 5 * time.Second

// Client is a remote rank's communicator. Used by one goroutine at a time.
type Client struct {
	conn    *grpc.ClientConn
	rank    int
	size    int
	session string
	seq     uint64
}

var _ sim.Communicator = (*Client)(nil)

// Dial connects rank to the coordinator at addr and registers with it.
// It waits for the coordinator to come up until ctx is done.
func Dial(ctx context.Context, addr string, rank, size int, opts ...grpc.DialOption) (*Client, error) {
	if size < 2 || rank <= sim.RootRank || rank >= size {
		return nil, sim.ConfigError(sim.CodeInvalidRank, "remote rank must be in [1, %d), got %d", size, rank)
	}
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName), grpc.WaitForReady(true)),
	}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, sim.CollectiveError(sim.CodeTransport, "connecting to "+addr, err)
	}

	var resp HelloResponse
	if err := conn.Invoke(ctx, methodHello, &HelloRequest{Rank: rank, Size: size}, &resp); err != nil {
		conn.Close()
		return nil, sim.CollectiveError(sim.CodeTransport, "registering with "+addr, err)
	}
	logrus.Debugf("rank %d joined session %s at %s", rank, resp.Session, addr)
	return &Client{conn: conn, rank: rank, size: size, session: resp.Session}, nil
}

// Rank is this process's rank in the group.
func (c *Client) Rank() int { return c.rank }

// Size is the number of ranks in the group.
func (c *Client) Size() int { return c.size }

// Barrier blocks until every rank has reached it.
func (c *Client) Barrier(ctx context.Context) error {
	_, err := c.join(ctx, comm.OpBarrier, sim.RootRank, 0)
	return err
}

// ReduceSum adds value across the group. Only root receives the sum.
func (c *Client) ReduceSum(ctx context.Context, value int64, root int) (int64, error) {
	sum, err := c.join(ctx, comm.OpReduceSum, root, value)
	if err != nil || c.rank != root {
		return 0, err
	}
	return sum, nil
}

// AllReduceMax returns the group-wide maximum of value.
func (c *Client) AllReduceMax(ctx context.Context, value int64) (int64, error) {
	return c.join(ctx, comm.OpAllReduceMax, sim.RootRank, value)
}

// Abort tells the coordinator to fail the group. Best effort: the caller is
// already failing, so transport errors are only logged.
func (c *Client) Abort(ctx context.Context, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), abortTimeout)
	defer cancel()
	reason := "unknown"
	if cause != nil {
		reason = cause.Error()
	}
	req := &AbortRequest{Session: c.session, Rank: c.rank, Reason: reason}
	if err := c.conn.Invoke(ctx, methodAbort, req, &AbortResponse{}, grpc.WaitForReady(false)); err != nil {
		logrus.Debugf("rank %d: abort not delivered: %v", c.rank, err)
	}
}

// Close drops the connection to the coordinator.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) join(ctx context.Context, op comm.Op, root int, value int64) (int64, error) {
	req := &JoinRequest{Session: c.session, Rank: c.rank, Seq: c.seq, Op: op, Root: root, Value: value}
	c.seq++
	var resp JoinResponse
	// The coordinator is known to be up once Hello succeeded. If it is gone
	// now the group is over, so fail instead of waiting for it to return.
	if err := c.conn.Invoke(ctx, methodJoin, req, &resp, grpc.WaitForReady(false)); err != nil {
		code := sim.CodeTransport
		switch status.Code(err) {
		case codes.Aborted, codes.Unavailable:
			code = sim.CodeAborted
		}
		return 0, sim.CollectiveError(code, string(op)+" failed", err)
	}
	return resp.Value, nil
}
