package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"firestige.xyz/ethermirror/internal/capture"
	"firestige.xyz/ethermirror/internal/config"
	"firestige.xyz/ethermirror/internal/iface"
	"firestige.xyz/ethermirror/internal/log"
)

type idleChannel struct {
	closed bool
}

func (c *idleChannel) Receive() ([]byte, error)     { return nil, errors.New("idle") }
func (c *idleChannel) Send(int, func([]byte)) error { return nil }
func (c *idleChannel) LinkType() layers.LinkType    { return layers.LinkTypeEthernet }
func (c *idleChannel) Stats() capture.Stats         { return capture.Stats{} }
func (c *idleChannel) Close() error                 { c.closed = true; return nil }

func writeConfig(t *testing.T, logDir string, extra ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ethermirror.yml")
	content := "interface: thunderbolt1\nlog:\n  dir: " + logDir + "\n"
	for _, e := range extra {
		content += e
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func logContents(t *testing.T, dir string) string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(dir, "*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	b, err := os.ReadFile(files[0])
	require.NoError(t, err)
	return string(b)
}

func TestRunMirrorInterfaceNotFound(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "logs")
	d := deps{
		resolve: func(sel iface.NetInterface) (net.Interface, error) {
			return iface.Resolve(sel, []net.Interface{{Index: 1, Name: "lo"}})
		},
		open: func(net.Interface, *capture.Options) (capture.Channel, error) {
			t.Fatal("open must not be called")
			return nil, nil
		},
		logOpts: []log.Option{log.WithConsole(io.Discard)},
	}

	err := runMirror(context.Background(), writeConfig(t, logDir), d)
	require.Error(t, err)
	assert.ErrorIs(t, err, iface.ErrInterfaceNotFound)
	assert.Contains(t, err.Error(), "en1")
	assert.Contains(t, logContents(t, logDir), "ethermirror failed")
}

func TestRunMirrorChannelOpenFailure(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "logs")
	d := deps{
		resolve: func(iface.NetInterface) (net.Interface, error) {
			return net.Interface{Index: 3, Name: "en1"}, nil
		},
		open: func(net.Interface, *capture.Options) (capture.Channel, error) {
			return nil, capture.ErrUnhandledChannel
		},
		logOpts: []log.Option{log.WithConsole(io.Discard)},
	}

	err := runMirror(context.Background(), writeConfig(t, logDir), d)
	assert.ErrorIs(t, err, capture.ErrUnhandledChannel)
}

func TestRunMirrorStopsOnCancel(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "logs")
	ch := &idleChannel{}
	var gotOpts *capture.Options
	d := deps{
		resolve: func(sel iface.NetInterface) (net.Interface, error) {
			assert.Equal(t, iface.Thunderbolt1, sel)
			return net.Interface{Index: 3, Name: "en1"}, nil
		},
		open: func(ifi net.Interface, opts *capture.Options) (capture.Channel, error) {
			gotOpts = opts
			return ch, nil
		},
		logOpts: []log.Option{log.WithConsole(io.Discard)},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, runMirror(ctx, writeConfig(t, logDir), d))

	assert.True(t, ch.closed)
	require.NotNil(t, gotOpts)
	assert.Equal(t, capture.TypePCAP, gotOpts.CaptureType)
	assert.Equal(t, 65536, gotOpts.SnapLen)
	assert.True(t, gotOpts.InboundOnly)

	contents := logContents(t, logDir)
	assert.Contains(t, contents, "Opening datalink channel")
	assert.Contains(t, contents, "Capture loop stopped")
}

func TestRunMirrorCapturesOutboundWhenConfigured(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "logs")
	var gotOpts *capture.Options
	d := deps{
		resolve: func(iface.NetInterface) (net.Interface, error) {
			return net.Interface{Index: 3, Name: "en1"}, nil
		},
		open: func(ifi net.Interface, opts *capture.Options) (capture.Channel, error) {
			gotOpts = opts
			return &idleChannel{}, nil
		},
		logOpts: []log.Option{log.WithConsole(io.Discard)},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	path := writeConfig(t, logDir, "capture:\n  backend: afpacket\n  inbound_only: false\n")
	require.NoError(t, runMirror(ctx, path, d))

	require.NotNil(t, gotOpts)
	assert.Equal(t, capture.TypeAFPacket, gotOpts.CaptureType)
	assert.False(t, gotOpts.InboundOnly)
}

func TestRunMirrorBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(path, []byte("capture:\n  backend: dpdk\n"), 0o644))

	err := runMirror(context.Background(), path, deps{})
	assert.Error(t, err)
}

func TestPrintConfig(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printConfig("", &buf))

	want, err := config.Load("")
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &cfg))
	assert.Equal(t, *want, cfg)
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)
	assert.Contains(t, buf.String(), "ethermirror "+version)
}
