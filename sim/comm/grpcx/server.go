// Package grpcx carries collectives between OS processes over gRPC.
//
// Rank 0 hosts the group's comm.Hub behind a Server and takes part through
// a Coordinator; every other rank dials it with Dial. The wire protocol is a
// single unary Join call per collective, blocking until the whole group has
// joined.
package grpcx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/inference-sim/pisim/sim"
	"github.com/inference-sim/pisim/sim/comm"
)

// Server exposes a Hub to remote ranks.
type Server struct {
	hub     *comm.Hub
	session string
	grpc    *grpc.Server
}

// NewServer creates a Server for hub with a fresh session ID.
func NewServer(hub *comm.Hub, opts ...grpc.ServerOption) *Server {
	s := &Server{
		hub:     hub,
		session: uuid.New().String(),
		grpc:    grpc.NewServer(opts...),
	}
	s.grpc.RegisterService(&collectiveServiceDesc, s)
	return s
}

// Session identifies this group; remote ranks learn it from Hello.
func (s *Server) Session() string {
	return s.session
}

// Serve accepts connections on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// Stop waits for in-flight collectives to return, then closes every connection.
func (s *Server) Stop() {
	s.grpc.GracefulStop()
}

// Hello checks that the caller agrees on the group size.
func (s *Server) Hello(_ context.Context, req *HelloRequest) (*HelloResponse, error) {
	if req.Size != s.hub.Size() {
		return nil, status.Errorf(codes.InvalidArgument, "group size mismatch: coordinator has %d, rank %d has %d",
			s.hub.Size(), req.Rank, req.Size)
	}
	if !s.isRemoteRank(req.Rank) {
		return nil, status.Errorf(codes.InvalidArgument, "rank %d cannot join remotely", req.Rank)
	}
	logrus.Debugf("session %s: rank %d connected", s.session, req.Rank)
	return &HelloResponse{Session: s.session}, nil
}

// Join enters the collective on the caller's behalf. A caller that
// disconnects mid-collective cancels ctx, which aborts the group.
func (s *Server) Join(ctx context.Context, req *JoinRequest) (*JoinResponse, error) {
	if req.Session != s.session {
		return nil, status.Errorf(codes.FailedPrecondition, "unknown session %q", req.Session)
	}
	if !s.isRemoteRank(req.Rank) {
		return nil, status.Errorf(codes.InvalidArgument, "rank %d cannot join remotely", req.Rank)
	}
	v, err := s.hub.Enter(ctx, req.Seq, req.Rank, req.Op, req.Root, req.Value)
	if err != nil {
		return nil, status.Error(codes.Aborted, err.Error())
	}
	return &JoinResponse{Value: v}, nil
}

// isRemoteRank reports whether rank may reach the Hub over the network.
// Rank 0 is the coordinator itself.
func (s *Server) isRemoteRank(rank int) bool {
	return rank > sim.RootRank && rank < s.hub.Size()
}

// Abort fails the group on behalf of a remote rank.
func (s *Server) Abort(_ context.Context, req *AbortRequest) (*AbortResponse, error) {
	if req.Session != s.session {
		return nil, status.Errorf(codes.FailedPrecondition, "unknown session %q", req.Session)
	}
	logrus.Warnf("session %s: rank %d aborted the run: %s", s.session, req.Rank, req.Reason)
	s.hub.Abort(fmt.Errorf("rank %d: %s", req.Rank, req.Reason))
	return &AbortResponse{}, nil
}

// Coordinator is rank 0's communicator: it hosts the Server and joins
// collectives through the Hub directly.
type Coordinator struct {
	*comm.Endpoint
	server *Server
	lis    net.Listener
	served chan error

	closeOnce sync.Once
	closeErr  error
}

var _ sim.Communicator = (*Coordinator)(nil)

// Listen starts a coordinator for a group of size ranks on addr.
func Listen(addr string, size int, opts ...grpc.ServerOption) (*Coordinator, error) {
	if size < 1 {
		return nil, sim.ConfigError(sim.CodeInvalidRanks, "group size must be >= 1, got %d", size)
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, sim.CollectiveError(sim.CodeTransport, "listening on "+addr, err)
	}
	hub := comm.NewHub(size)
	c := &Coordinator{
		Endpoint: hub.Endpoint(sim.RootRank),
		server:   NewServer(hub, opts...),
		lis:      lis,
		served:   make(chan error, 1),
	}
	go func() {
		err := c.server.Serve(lis)
		if errors.Is(err, grpc.ErrServerStopped) {
			err = nil
		}
		c.served <- err
	}()
	logrus.Infof("coordinator listening on %s for %d ranks (session %s)", lis.Addr(), size, c.server.Session())
	return c, nil
}

// Addr is the address the coordinator is listening on.
func (c *Coordinator) Addr() net.Addr {
	return c.lis.Addr()
}

// Session identifies the group.
func (c *Coordinator) Session() string {
	return c.server.Session()
}

// Close drains in-flight collectives and stops serving.
func (c *Coordinator) Close() error {
	c.closeOnce.Do(func() {
		c.server.Stop()
		c.closeErr = <-c.served
	})
	return c.closeErr
}
