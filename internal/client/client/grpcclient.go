package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/tokenpb"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Identity is the answer to WhoAmI.
type Identity struct {
	UserID string
	Email  string
}

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      tokenpb.TokenServiceClient

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func isTokenExpired(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == codes.Unauthenticated && st.Message() == common.ErrTokenExpired.Error()
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	// login and refresh authenticate with their payload
	if method == tokenpb.LoginMethod || method == tokenpb.RefreshMethod {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	access, refresh := s.Tokens()

	err := invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
	if err == nil || !isTokenExpired(err) || refresh == "" {
		return err
	}

	if _, rerr := s.Refresh(ctx); rerr != nil {
		return err
	}

	access, _ = s.Tokens()
	return invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
}

func NewAuthKeeperClient(endpointURL string) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	err := c.InitGRPCClient()
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient(opts ...grpc.DialOption) error {

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = tokenpb.NewTokenServiceClient(conn)
	return nil
}

// SetTokens replaces the stored pair, e.g. with tokens read from the command line.
func (s *GRPCClient) SetTokens(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = access
	s.refreshToken = refresh
}

func (s *GRPCClient) Tokens() (access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.refreshToken
}

func (s *GRPCClient) Login(ctx context.Context, email string, password []byte) (tokenpb.Pair, error) {

	req := &structpb.Struct{Fields: map[string]*structpb.Value{
		"email":    structpb.NewStringValue(email),
		"password": structpb.NewStringValue(string(password)),
	}}

	resp, err := s.client.Login(ctx, req)
	if err != nil {
		return tokenpb.Pair{}, s.mapError(err)
	}

	pair := tokenpb.PairFromStruct(resp)
	s.SetTokens(pair.AccessToken, pair.RefreshToken)
	return pair, nil
}

// Refresh rotates the stored refresh token. On success both stored tokens
// are replaced; the old refresh token is no longer usable.
func (s *GRPCClient) Refresh(ctx context.Context) (tokenpb.Pair, error) {
	_, refresh := s.Tokens()
	if refresh == "" {
		return tokenpb.Pair{}, ErrUnauthorized
	}

	resp, err := s.client.Refresh(ctx, wrapperspb.String(refresh))
	if err != nil {
		return tokenpb.Pair{}, s.mapError(err)
	}

	pair := tokenpb.PairFromStruct(resp)
	s.SetTokens(pair.AccessToken, pair.RefreshToken)
	return pair, nil
}

func (s *GRPCClient) WhoAmI(ctx context.Context) (Identity, error) {
	if access, _ := s.Tokens(); access == "" {
		return Identity{}, ErrNotLoggedIn
	}

	resp, err := s.client.WhoAmI(ctx, &emptypb.Empty{})
	if err != nil {
		return Identity{}, s.mapError(err)
	}

	return Identity{
		UserID: tokenpb.StringField(resp, "userId"),
		Email:  tokenpb.StringField(resp, "email"),
	}, nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
