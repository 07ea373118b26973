package ipc

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"shotbuddy/internal/api"
	"shotbuddy/internal/shot"
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

// call issues method and waits for the reply or for ctx to end. A reply that
// arrives after cancellation is discarded.
func (c *Client) call(ctx context.Context, method string, req, resp any) error {
	pending, err := c.send(ctx, method, req, resp)
	if err != nil {
		return err
	}
	return await(ctx, method, pending)
}

// send writes the request to the socket and returns without waiting for the
// reply.
func (c *Client) send(ctx context.Context, method string, req, resp any) (*rpc.Call, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return c.client.Go(serviceName+"."+method, req, resp, make(chan *rpc.Call, 1)), nil
}

func await(ctx context.Context, method string, pending *rpc.Call) error {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", method, ctx.Err())
	case done := <-pending.Done:
		if done.Error != nil {
			return fmt.Errorf("%s: %w", method, done.Error)
		}
		return nil
	}
}

// Status retrieves the daemon status.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call(ctx, "Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop asks the daemon process to exit.
func (c *Client) Stop(ctx context.Context) (*StopResponse, error) {
	var resp StopResponse
	if err := c.call(ctx, "Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListShots returns the board in display order.
func (c *Client) ListShots(ctx context.Context) ([]shot.Shot, error) {
	var resp ShotsResponse
	if err := c.call(ctx, "ListShots", ListShotsRequest{}, &resp); err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return api.ToShots(resp.Shots), nil
}

// InsertShotAfter creates a shot directly after afterKey.
func (c *Client) InsertShotAfter(ctx context.Context, afterKey string) (shot.Shot, error) {
	return c.shotCall(ctx, "InsertShotAfter", InsertShotRequest{AfterKey: afterKey})
}

// RenameShot renames a shot.
func (c *Client) RenameShot(ctx context.Context, oldName, newName string) (shot.Shot, error) {
	return c.shotCall(ctx, "RenameShot", RenameShotRequest{OldName: oldName, NewName: newName})
}

// UploadAsset sends content as the next version of the slot. An empty slot
// lets the daemon infer it from the filename.
func (c *Client) UploadAsset(ctx context.Context, shotName string, slot shot.SlotType, filename string, content io.Reader) (shot.Shot, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return shot.Shot{}, fmt.Errorf("read upload: %w", err)
	}
	return c.shotCall(ctx, "UploadAsset", UploadAssetRequest{
		ShotName: shotName,
		Slot:     string(slot),
		Filename: filename,
		Content:  data,
	})
}

// FetchPrompt returns the stored prompt of a slot version.
func (c *Client) FetchPrompt(ctx context.Context, shotName string, slot shot.SlotType, version int) (string, error) {
	var resp PromptResponse
	req := PromptRequest{ShotName: shotName, Slot: string(slot), Version: version}
	if err := c.call(ctx, "FetchPrompt", req, &resp); err != nil {
		return "", err
	}
	if err := resp.Err(); err != nil {
		return "", err
	}
	return resp.Prompt, nil
}

// SavePrompt stores prompt text for a slot version.
func (c *Client) SavePrompt(ctx context.Context, shotName string, slot shot.SlotType, version int, text string) error {
	_, err := c.shotCall(ctx, "SavePrompt", SavePromptRequest{
		ShotName: shotName,
		Slot:     string(slot),
		Version:  version,
		Text:     text,
	})
	return err
}

// SendSavePrompt writes a SavePrompt request and returns once it is on the
// socket. wait blocks for the daemon's reply.
func (c *Client) SendSavePrompt(ctx context.Context, shotName string, slot shot.SlotType, version int, text string) (wait func() error) {
	var resp ShotResponse
	req := SavePromptRequest{ShotName: shotName, Slot: string(slot), Version: version, Text: text}
	pending, err := c.send(ctx, "SavePrompt", req, &resp)
	if err != nil {
		return func() error { return err }
	}
	return func() error {
		if err := await(ctx, "SavePrompt", pending); err != nil {
			return err
		}
		return resp.Err()
	}
}

// SaveNotes replaces a shot's notes.
func (c *Client) SaveNotes(ctx context.Context, shotName, notes string) (shot.Shot, error) {
	return c.shotCall(ctx, "SaveNotes", SaveNotesRequest{ShotName: shotName, Notes: notes})
}

// AssetVersions lists the versions stored for a slot.
func (c *Client) AssetVersions(ctx context.Context, shotName string, slot shot.SlotType) ([]int, error) {
	var resp AssetVersionsResponse
	if err := c.call(ctx, "AssetVersions", AssetVersionsRequest{ShotName: shotName, Slot: string(slot)}, &resp); err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp.Versions, nil
}

// Settings reads board settings.
func (c *Client) Settings(ctx context.Context) (api.Settings, error) {
	var resp SettingsResponse
	if err := c.call(ctx, "Settings", SettingsRequest{}, &resp); err != nil {
		return api.Settings{}, err
	}
	return resp.Settings, resp.Err()
}

// UpdateSettings applies a partial settings change.
func (c *Client) UpdateSettings(ctx context.Context, update api.SettingsUpdate) (api.Settings, error) {
	var resp SettingsResponse
	if err := c.call(ctx, "UpdateSettings", UpdateSettingsRequest{Update: update}, &resp); err != nil {
		return api.Settings{}, err
	}
	return resp.Settings, resp.Err()
}

// References lists reference images.
func (c *Client) References(ctx context.Context) ([]api.Reference, error) {
	var resp ReferencesResponse
	if err := c.call(ctx, "References", ReferencesRequest{}, &resp); err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp.References, nil
}

// Export snapshots the board.
func (c *Client) Export(ctx context.Context) (api.ExportDocument, error) {
	var resp ExportResponse
	if err := c.call(ctx, "Export", ExportRequest{}, &resp); err != nil {
		return api.ExportDocument{}, err
	}
	return resp.Document, resp.Err()
}

func (c *Client) shotCall(ctx context.Context, method string, req any) (shot.Shot, error) {
	var resp ShotResponse
	if err := c.call(ctx, method, req, &resp); err != nil {
		return shot.Shot{}, err
	}
	if err := resp.Err(); err != nil {
		return shot.Shot{}, err
	}
	return api.ToShot(resp.Shot), nil
}
