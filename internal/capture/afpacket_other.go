//go:build !linux

package capture

func registerPlatformBackends(f *CaptureHandleFactory) {}
