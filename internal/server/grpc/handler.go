package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/users"
	"github.com/dmitrijs2005/authkeeper/internal/tokenpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func (s *GRPCServer) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	pair, err := s.accounts.Login(ctx, tokenpb.StringField(req, "email"), tokenpb.StringField(req, "password"))

	if err != nil {
		switch {
		case errors.Is(err, users.ErrWrongPassword):
			return nil, status.Error(codes.Unauthenticated, "Password is incorrect.")
		case errors.Is(err, users.ErrAccountNotFound):
			return nil, status.Error(codes.Unauthenticated, "Account does not exist.")
		case errors.Is(err, users.ErrMissingFields):
			return nil, status.Error(codes.InvalidArgument, "Email and password are required.")
		}
		return nil, s.mapError(ctx, "login", err)
	}

	return tokenpb.PairStruct(pair.AccessToken, pair.RefreshToken, pair.ExpiresAt), nil

}

func (s *GRPCServer) Refresh(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {

	pair, err := s.rotator.Rotate(ctx, req.GetValue())

	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			return nil, status.Error(codes.Unauthenticated, "invalid refresh token")
		}
		return nil, s.mapError(ctx, "refresh", err)
	}

	return tokenpb.PairStruct(pair.AccessToken, pair.RefreshToken, pair.ExpiresAt), nil

}

func (s *GRPCServer) WhoAmI(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {

	claims, ok := claimsFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	user, err := s.accounts.Profile(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, users.ErrAccountNotFound) {
			return nil, status.Error(codes.Unauthenticated, "unauthorized")
		}
		return nil, s.mapError(ctx, "whoami", err)
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"userId": structpb.NewStringValue(user.ID),
		"email":  structpb.NewStringValue(user.Email),
	}}, nil

}

func (s *GRPCServer) mapError(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, common.ErrStoreUnavailable):
		s.logger.Warn(ctx, "store unavailable", "op", op, "error", err)
		return status.Error(codes.Unavailable, "service temporarily unavailable")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		s.logger.Error(ctx, "request failed", "op", op, "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}
