package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
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
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Jukebox.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TrackList returns every occupied track slot.
func (c *Client) TrackList() (*TrackListResponse, error) {
	var resp TrackListResponse
	if err := c.client.Call("Jukebox.TrackList", TrackListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SampleList returns sample slots; bank < 0 means all banks.
func (c *Client) SampleList(bank int) (*SampleListResponse, error) {
	var resp SampleListResponse
	if err := c.client.Call("Jukebox.SampleList", SampleListRequest{Bank: bank}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Import queues an import job.
func (c *Client) Import(req ImportRequest) (*ImportResponse, error) {
	var resp ImportResponse
	if err := c.client.Call("Jukebox.Import", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Job returns one import job by id.
func (c *Client) Job(id string) (*JobResponse, error) {
	var resp JobResponse
	if err := c.client.Call("Jukebox.Job", JobRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// JobList returns all retained import jobs.
func (c *Client) JobList() (*JobListResponse, error) {
	var resp JobListResponse
	if err := c.client.Call("Jukebox.JobList", JobListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Delete clears a slot.
func (c *Client) Delete(req DeleteRequest) (*DeleteResponse, error) {
	var resp DeleteResponse
	if err := c.client.Call("Jukebox.Delete", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Play starts playback of a track.
func (c *Client) Play(number int) (*PlayResponse, error) {
	var resp PlayResponse
	if err := c.client.Call("Jukebox.Play", PlayRequest{Number: number}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StopPlayback aborts the current track.
func (c *Client) StopPlayback() (*StopPlaybackResponse, error) {
	var resp StopPlaybackResponse
	if err := c.client.Call("Jukebox.StopPlayback", StopPlaybackRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Jukebox.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
