package capture

import (
	"fmt"
	"net"
	"sort"
	"sync"
)

// Options 抓包选项配置
type Options struct {
	CaptureType  CaptureType
	SnapLen      int    // 捕获长度
	Promiscuous  bool   // 混杂模式
	BufferSizeMB int    // 缓冲区大小 (MB)
	SocketType   string // afpacket: raw | dgram
	InboundOnly  bool   // 只抓入方向，避免再次抓到自己发出的帧 (pcap 方向过滤 / afpacket BPF)
}

// DefaultOptions 返回默认的抓包选项
func DefaultOptions() *Options {
	return &Options{
		CaptureType:  TypePCAP,
		SnapLen:      65536,
		Promiscuous:  true,
		BufferSizeMB: 8,
		SocketType:   "raw",
		InboundOnly:  true,
	}
}

type openFunc func(ifi net.Interface, opts *Options) (Handle, error)

var (
	factory     *CaptureHandleFactory
	factoryOnce sync.Once
)

// CaptureHandleFactory 抓包句柄工厂
type CaptureHandleFactory struct {
	backends map[CaptureType]openFunc
}

// HandleFactory returns the process-wide backend registry.
func HandleFactory() *CaptureHandleFactory {
	factoryOnce.Do(func() {
		factory = &CaptureHandleFactory{backends: map[CaptureType]openFunc{}}
		factory.register(TypePCAP, openPCAP)
		registerPlatformBackends(factory)
	})
	return factory
}

func (f *CaptureHandleFactory) register(t CaptureType, fn openFunc) {
	f.backends[t] = fn
}

// CreateHandle 根据类型创建抓包句柄
func (f *CaptureHandleFactory) CreateHandle(ifi net.Interface, opts *Options) (Handle, error) {
	if !f.IsTypeSupported(opts.CaptureType) {
		return nil, fmt.Errorf("%w: %s (supported: %v)", ErrUnsupportedBackend, opts.CaptureType, f.SupportedTypes())
	}
	h, err := f.backends[opts.CaptureType](ifi, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %s on %s: %w", ErrChannelOpen, opts.CaptureType, ifi.Name, err)
	}
	return h, nil
}

// SupportedTypes 获取支持的抓包类型列表
func (f *CaptureHandleFactory) SupportedTypes() []CaptureType {
	types := make([]CaptureType, 0, len(f.backends))
	for t := range f.backends {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// IsTypeSupported 检查指定类型是否支持
func (f *CaptureHandleFactory) IsTypeSupported(t CaptureType) bool {
	_, ok := f.backends[t]
	return ok
}
