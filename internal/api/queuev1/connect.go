package queuev1

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const (
	// QueueServiceName is the fully-qualified name of the QueueService.
	QueueServiceName = "hibiki.queue.v1.QueueService"
	// CatalogServiceName is the fully-qualified name of the CatalogService.
	CatalogServiceName = "hibiki.queue.v1.CatalogService"
)

// Procedure paths.
const (
	QueueServiceGetStateProcedure        = "/" + QueueServiceName + "/GetState"
	QueueServiceAddTracksProcedure       = "/" + QueueServiceName + "/AddTracks"
	QueueServicePlayTrackProcedure       = "/" + QueueServiceName + "/PlayTrack"
	QueueServicePlayNextProcedure        = "/" + QueueServiceName + "/PlayNext"
	QueueServiceRemoveTrackProcedure     = "/" + QueueServiceName + "/RemoveTrack"
	QueueServiceNextProcedure            = "/" + QueueServiceName + "/Next"
	QueueServicePreviousProcedure        = "/" + QueueServiceName + "/Previous"
	QueueServiceReorderProcedure         = "/" + QueueServiceName + "/Reorder"
	QueueServiceSetCurrentIndexProcedure = "/" + QueueServiceName + "/SetCurrentIndex"
	QueueServiceToggleShuffleProcedure   = "/" + QueueServiceName + "/ToggleShuffle"
	QueueServiceToggleLoopProcedure      = "/" + QueueServiceName + "/ToggleLoop"
	QueueServiceClearProcedure           = "/" + QueueServiceName + "/Clear"
	QueueServiceSetVolumeProcedure       = "/" + QueueServiceName + "/SetVolume"
	QueueServiceAdjustVolumeProcedure    = "/" + QueueServiceName + "/AdjustVolume"
	QueueServiceToggleMuteProcedure      = "/" + QueueServiceName + "/ToggleMute"
	QueueServiceSubscribeProcedure       = "/" + QueueServiceName + "/Subscribe"

	CatalogServiceSearchProcedure    = "/" + CatalogServiceName + "/Search"
	CatalogServiceStreamURLProcedure = "/" + CatalogServiceName + "/StreamURL"
)

// jsonCodec encodes plain Go messages as JSON.
// It is registered under the "json" name so both unary (application/json)
// and streaming (application/connect+json) requests use it.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// WithJSON selects the JSON codec. Handlers and clients must both use it.
func WithJSON() connect.Option {
	return connect.WithCodec(jsonCodec{})
}

// QueueServiceHandler is implemented by the queue service.
type QueueServiceHandler interface {
	GetState(context.Context, *connect.Request[Empty]) (*connect.Response[StateResponse], error)
	AddTracks(context.Context, *connect.Request[AddTracksRequest]) (*connect.Response[StateResponse], error)
	PlayTrack(context.Context, *connect.Request[TrackRequest]) (*connect.Response[StateResponse], error)
	PlayNext(context.Context, *connect.Request[TrackRequest]) (*connect.Response[StateResponse], error)
	RemoveTrack(context.Context, *connect.Request[RemoveTrackRequest]) (*connect.Response[StateResponse], error)
	Next(context.Context, *connect.Request[Empty]) (*connect.Response[StateResponse], error)
	Previous(context.Context, *connect.Request[Empty]) (*connect.Response[StateResponse], error)
	Reorder(context.Context, *connect.Request[ReorderRequest]) (*connect.Response[StateResponse], error)
	SetCurrentIndex(context.Context, *connect.Request[SetCurrentIndexRequest]) (*connect.Response[StateResponse], error)
	ToggleShuffle(context.Context, *connect.Request[Empty]) (*connect.Response[StateResponse], error)
	ToggleLoop(context.Context, *connect.Request[Empty]) (*connect.Response[StateResponse], error)
	Clear(context.Context, *connect.Request[Empty]) (*connect.Response[StateResponse], error)
	SetVolume(context.Context, *connect.Request[SetVolumeRequest]) (*connect.Response[StateResponse], error)
	AdjustVolume(context.Context, *connect.Request[AdjustVolumeRequest]) (*connect.Response[StateResponse], error)
	ToggleMute(context.Context, *connect.Request[Empty]) (*connect.Response[StateResponse], error)
	Subscribe(context.Context, *connect.Request[Empty], *connect.ServerStream[Notification]) error
}

// CatalogServiceHandler is implemented by the catalog service.
type CatalogServiceHandler interface {
	Search(context.Context, *connect.Request[SearchRequest]) (*connect.Response[SearchResponse], error)
	StreamURL(context.Context, *connect.Request[StreamURLRequest]) (*connect.Response[StreamURLResponse], error)
}

// NewQueueServiceHandler builds an HTTP handler serving every QueueService procedure.
// It returns the path on which to mount the handler.
func NewQueueServiceHandler(svc QueueServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(QueueServiceGetStateProcedure, connect.NewUnaryHandler(QueueServiceGetStateProcedure, svc.GetState, opts...))
	mux.Handle(QueueServiceAddTracksProcedure, connect.NewUnaryHandler(QueueServiceAddTracksProcedure, svc.AddTracks, opts...))
	mux.Handle(QueueServicePlayTrackProcedure, connect.NewUnaryHandler(QueueServicePlayTrackProcedure, svc.PlayTrack, opts...))
	mux.Handle(QueueServicePlayNextProcedure, connect.NewUnaryHandler(QueueServicePlayNextProcedure, svc.PlayNext, opts...))
	mux.Handle(QueueServiceRemoveTrackProcedure, connect.NewUnaryHandler(QueueServiceRemoveTrackProcedure, svc.RemoveTrack, opts...))
	mux.Handle(QueueServiceNextProcedure, connect.NewUnaryHandler(QueueServiceNextProcedure, svc.Next, opts...))
	mux.Handle(QueueServicePreviousProcedure, connect.NewUnaryHandler(QueueServicePreviousProcedure, svc.Previous, opts...))
	mux.Handle(QueueServiceReorderProcedure, connect.NewUnaryHandler(QueueServiceReorderProcedure, svc.Reorder, opts...))
	mux.Handle(QueueServiceSetCurrentIndexProcedure, connect.NewUnaryHandler(QueueServiceSetCurrentIndexProcedure, svc.SetCurrentIndex, opts...))
	mux.Handle(QueueServiceToggleShuffleProcedure, connect.NewUnaryHandler(QueueServiceToggleShuffleProcedure, svc.ToggleShuffle, opts...))
	mux.Handle(QueueServiceToggleLoopProcedure, connect.NewUnaryHandler(QueueServiceToggleLoopProcedure, svc.ToggleLoop, opts...))
	mux.Handle(QueueServiceClearProcedure, connect.NewUnaryHandler(QueueServiceClearProcedure, svc.Clear, opts...))
	mux.Handle(QueueServiceSetVolumeProcedure, connect.NewUnaryHandler(QueueServiceSetVolumeProcedure, svc.SetVolume, opts...))
	mux.Handle(QueueServiceAdjustVolumeProcedure, connect.NewUnaryHandler(QueueServiceAdjustVolumeProcedure, svc.AdjustVolume, opts...))
	mux.Handle(QueueServiceToggleMuteProcedure, connect.NewUnaryHandler(QueueServiceToggleMuteProcedure, svc.ToggleMute, opts...))
	mux.Handle(QueueServiceSubscribeProcedure, connect.NewServerStreamHandler(QueueServiceSubscribeProcedure, svc.Subscribe, opts...))

	return "/" + QueueServiceName + "/", mux
}

// NewCatalogServiceHandler builds an HTTP handler serving every CatalogService procedure.
func NewCatalogServiceHandler(svc CatalogServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(CatalogServiceSearchProcedure, connect.NewUnaryHandler(CatalogServiceSearchProcedure, svc.Search, opts...))
	mux.Handle(CatalogServiceStreamURLProcedure, connect.NewUnaryHandler(CatalogServiceStreamURLProcedure, svc.StreamURL, opts...))

	return "/" + CatalogServiceName + "/", mux
}

// QueueServiceClient calls the QueueService.
type QueueServiceClient struct {
	getState        *connect.Client[Empty, StateResponse]
	addTracks       *connect.Client[AddTracksRequest, StateResponse]
	playTrack       *connect.Client[TrackRequest, StateResponse]
	playNext        *connect.Client[TrackRequest, StateResponse]
	removeTrack     *connect.Client[RemoveTrackRequest, StateResponse]
	next            *connect.Client[Empty, StateResponse]
	previous        *connect.Client[Empty, StateResponse]
	reorder         *connect.Client[ReorderRequest, StateResponse]
	setCurrentIndex *connect.Client[SetCurrentIndexRequest, StateResponse]
	toggleShuffle   *connect.Client[Empty, StateResponse]
	toggleLoop      *connect.Client[Empty, StateResponse]
	clear           *connect.Client[Empty, StateResponse]
	setVolume       *connect.Client[SetVolumeRequest, StateResponse]
	adjustVolume    *connect.Client[AdjustVolumeRequest, StateResponse]
	toggleMute      *connect.Client[Empty, StateResponse]
	subscribe       *connect.Client[Empty, Notification]
}

// NewQueueServiceClient creates a QueueService client for the server at baseURL.
func NewQueueServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *QueueServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{WithJSON()}, opts...)

	return &QueueServiceClient{
		getState:        connect.NewClient[Empty, StateResponse](httpClient, baseURL+QueueServiceGetStateProcedure, opts...),
		addTracks:       connect.NewClient[AddTracksRequest, StateResponse](httpClient, baseURL+QueueServiceAddTracksProcedure, opts...),
		playTrack:       connect.NewClient[TrackRequest, StateResponse](httpClient, baseURL+QueueServicePlayTrackProcedure, opts...),
		playNext:        connect.NewClient[TrackRequest, StateResponse](httpClient, baseURL+QueueServicePlayNextProcedure, opts...),
		removeTrack:     connect.NewClient[RemoveTrackRequest, StateResponse](httpClient, baseURL+QueueServiceRemoveTrackProcedure, opts...),
		next:            connect.NewClient[Empty, StateResponse](httpClient, baseURL+QueueServiceNextProcedure, opts...),
		previous:        connect.NewClient[Empty, StateResponse](httpClient, baseURL+QueueServicePreviousProcedure, opts...),
		reorder:         connect.NewClient[ReorderRequest, StateResponse](httpClient, baseURL+QueueServiceReorderProcedure, opts...),
		setCurrentIndex: connect.NewClient[SetCurrentIndexRequest, StateResponse](httpClient, baseURL+QueueServiceSetCurrentIndexProcedure, opts...),
		toggleShuffle:   connect.NewClient[Empty, StateResponse](httpClient, baseURL+QueueServiceToggleShuffleProcedure, opts...),
		toggleLoop:      connect.NewClient[Empty, StateResponse](httpClient, baseURL+QueueServiceToggleLoopProcedure, opts...),
		clear:           connect.NewClient[Empty, StateResponse](httpClient, baseURL+QueueServiceClearProcedure, opts...),
		setVolume:       connect.NewClient[SetVolumeRequest, StateResponse](httpClient, baseURL+QueueServiceSetVolumeProcedure, opts...),
		adjustVolume:    connect.NewClient[AdjustVolumeRequest, StateResponse](httpClient, baseURL+QueueServiceAdjustVolumeProcedure, opts...),
		toggleMute:      connect.NewClient[Empty, StateResponse](httpClient, baseURL+QueueServiceToggleMuteProcedure, opts...),
		subscribe:       connect.NewClient[Empty, Notification](httpClient, baseURL+QueueServiceSubscribeProcedure, opts...),
	}
}

func callState[Req any](ctx context.Context, c *connect.Client[Req, StateResponse], req *Req) (*StateResponse, error) {
	resp, err := c.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// GetState returns the current queue.
func (c *QueueServiceClient) GetState(ctx context.Context) (*StateResponse, error) {
	return callState(ctx, c.getState, &Empty{})
}

// AddTracks appends tracks.
func (c *QueueServiceClient) AddTracks(ctx context.Context, req *AddTracksRequest) (*StateResponse, error) {
	return callState(ctx, c.addTracks, req)
}

// PlayTrack selects a track, queueing it when needed.
func (c *QueueServiceClient) PlayTrack(ctx context.Context, req *TrackRequest) (*StateResponse, error) {
	return callState(ctx, c.playTrack, req)
}

// PlayNext inserts a track after the current one.
func (c *QueueServiceClient) PlayNext(ctx context.Context, req *TrackRequest) (*StateResponse, error) {
	return callState(ctx, c.playNext, req)
}

// RemoveTrack removes a slot.
func (c *QueueServiceClient) RemoveTrack(ctx context.Context, req *RemoveTrackRequest) (*StateResponse, error) {
	return callState(ctx, c.removeTrack, req)
}

// Next advances playback.
func (c *QueueServiceClient) Next(ctx context.Context) (*StateResponse, error) {
	return callState(ctx, c.next, &Empty{})
}

// Previous goes back.
func (c *QueueServiceClient) Previous(ctx context.Context) (*StateResponse, error) {
	return callState(ctx, c.previous, &Empty{})
}

// Reorder moves a slot.
func (c *QueueServiceClient) Reorder(ctx context.Context, req *ReorderRequest) (*StateResponse, error) {
	return callState(ctx, c.reorder, req)
}

// SetCurrentIndex jumps to a slot.
func (c *QueueServiceClient) SetCurrentIndex(ctx context.Context, req *SetCurrentIndexRequest) (*StateResponse, error) {
	return callState(ctx, c.setCurrentIndex, req)
}

// ToggleShuffle flips shuffle mode.
func (c *QueueServiceClient) ToggleShuffle(ctx context.Context) (*StateResponse, error) {
	return callState(ctx, c.toggleShuffle, &Empty{})
}

// ToggleLoop flips loop mode.
func (c *QueueServiceClient) ToggleLoop(ctx context.Context) (*StateResponse, error) {
	return callState(ctx, c.toggleLoop, &Empty{})
}

// Clear empties the queue.
func (c *QueueServiceClient) Clear(ctx context.Context) (*StateResponse, error) {
	return callState(ctx, c.clear, &Empty{})
}

// SetVolume sets the volume.
func (c *QueueServiceClient) SetVolume(ctx context.Context, req *SetVolumeRequest) (*StateResponse, error) {
	return callState(ctx, c.setVolume, req)
}

// AdjustVolume raises or lowers the volume.
func (c *QueueServiceClient) AdjustVolume(ctx context.Context, req *AdjustVolumeRequest) (*StateResponse, error) {
	return callState(ctx, c.adjustVolume, req)
}

// ToggleMute mutes or unmutes.
func (c *QueueServiceClient) ToggleMute(ctx context.Context) (*StateResponse, error) {
	return callState(ctx, c.toggleMute, &Empty{})
}

// Subscribe opens the notification stream.
func (c *QueueServiceClient) Subscribe(ctx context.Context) (*connect.ServerStreamForClient[Notification], error) {
	return c.subscribe.CallServerStream(ctx, connect.NewRequest(&Empty{}))
}

// CatalogServiceClient calls the CatalogService.
type CatalogServiceClient struct {
	search    *connect.Client[SearchRequest, SearchResponse]
	streamURL *connect.Client[StreamURLRequest, StreamURLResponse]
}

// NewCatalogServiceClient creates a CatalogService client for the server at baseURL.
func NewCatalogServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *CatalogServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{WithJSON()}, opts...)

	return &CatalogServiceClient{
		search:    connect.NewClient[SearchRequest, SearchResponse](httpClient, baseURL+CatalogServiceSearchProcedure, opts...),
		streamURL: connect.NewClient[StreamURLRequest, StreamURLResponse](httpClient, baseURL+CatalogServiceStreamURLProcedure, opts...),
	}
}

// Search searches the catalog.
func (c *CatalogServiceClient) Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	resp, err := c.search.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// StreamURL resolves a playable URL.
func (c *CatalogServiceClient) StreamURL(ctx context.Context, req *StreamURLRequest) (*StreamURLResponse, error) {
	resp, err := c.streamURL.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}
