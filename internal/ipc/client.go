package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"tubefetch/internal/jobs"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func call[Resp any](c *Client, method string, req any) (*Resp, error) {
	var resp Resp
	if err := c.client.Call(ServiceName+"."+method, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Submit starts a job and returns its id.
func (c *Client) Submit(job jobs.Request) (*SubmitResponse, error) {
	return call[SubmitResponse](c, "Submit", SubmitRequest{Job: job})
}

// Stop cancels jobID, or every running job when jobID is empty.
func (c *Client) Stop(jobID string) (*StopResponse, error) {
	return call[StopResponse](c, "Stop", StopRequest{JobID: jobID})
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	return call[StatusResponse](c, "Status", StatusRequest{})
}

// Playlist retrieves the current playlist.
func (c *Client) Playlist() (*PlaylistResponse, error) {
	return call[PlaylistResponse](c, "Playlist", PlaylistRequest{})
}

// FetchPlaylist resolves a playlist URL into the daemon's store.
func (c *Client) FetchPlaylist(req FetchRequest) (*PlaylistResponse, error) {
	return call[PlaylistResponse](c, "FetchPlaylist", req)
}

// ResetPlaylist returns every entry to queued.
func (c *Client) ResetPlaylist(clientID string) (*ResetResponse, error) {
	return call[ResetResponse](c, "ResetPlaylist", ResetRequest{ClientID: clientID})
}

// Subscribe opens an event channel.
func (c *Client) Subscribe() (*SubscribeResponse, error) {
	return call[SubscribeResponse](c, "Subscribe", SubscribeRequest{})
}

// Events long-polls the channel for up to wait.
func (c *Client) Events(clientID string, wait time.Duration, limit int) (*EventsResponse, error) {
	return call[EventsResponse](c, "Events", EventsRequest{
		ClientID:   clientID,
		WaitMillis: int(wait / time.Millisecond),
		Limit:      limit,
	})
}

// Unsubscribe closes the channel.
func (c *Client) Unsubscribe(clientID string) (*UnsubscribeResponse, error) {
	return call[UnsubscribeResponse](c, "Unsubscribe", UnsubscribeRequest{ClientID: clientID})
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	return call[LogTailResponse](c, "LogTail", req)
}

// Shutdown asks the daemon process to exit.
func (c *Client) Shutdown() (*ShutdownResponse, error) {
	return call[ShutdownResponse](c, "Shutdown", ShutdownRequest{})
}
