package connect

import (
	"context"

	"connectrpc.com/connect"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/hibiki/internal/api/queuev1"
	"github.com/osa030/hibiki/internal/app/catalog"
)

// CatalogService implements the CatalogService RPC.
type CatalogService struct {
	source catalog.Source
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(source catalog.Source) *CatalogService {
	return &CatalogService{source: source}
}

// Ensure CatalogService implements the interface.
var _ queuev1.CatalogServiceHandler = (*CatalogService)(nil)

// Search looks tracks up in the catalog.
func (s *CatalogService) Search(
	ctx context.Context,
	req *connect.Request[queuev1.SearchRequest],
) (*connect.Response[queuev1.SearchResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	tracks, err := s.source.Search(ctx, req.Msg.Query, req.Msg.Limit)
	if err != nil {
		zlog.Warn().Msgf("catalog search failed: query=%s err=%v", req.Msg.Query, err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&queuev1.SearchResponse{Tracks: tracks}), nil
}

// StreamURL resolves a playable URL for a track.
func (s *CatalogService) StreamURL(
	ctx context.Context,
	req *connect.Request[queuev1.StreamURLRequest],
) (*connect.Response[queuev1.StreamURLResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	u, err := s.source.StreamURL(ctx, req.Msg.TrackID)
	if err != nil {
		zlog.Warn().Msgf("stream url lookup failed: track_id=%s err=%v", req.Msg.TrackID, err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&queuev1.StreamURLResponse{URL: u}), nil
}
