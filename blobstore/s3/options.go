package s3

// defaultPartSize is larger than the SDK default of 5MB for better throughput.
const defaultPartSize = 8 * 1024 * 1024

type options struct {
	prefix            string
	region            string
	endpoint          string
	partSize          int64
	concurrency       int
	leavePartsOnError bool
}

func defaultOptions() options {
	return options{
		partSize:    defaultPartSize,
		concurrency: 5,
	}
}

// Option configures a Store.
type Option func(*options)

// WithPrefix prepends prefix to every object key.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithRegion overrides the region from the shared AWS config.
func WithRegion(region string) Option {
	return func(o *options) {
		o.region = region
	}
}

// WithEndpoint points the client at an S3-compatible endpoint and enables
// path-style addressing.
func WithEndpoint(endpoint string) Option {
	return func(o *options) {
		o.endpoint = endpoint
	}
}

// WithPartSize sets the multipart threshold and part size. Values below the
// S3 minimum of 5MB are raised by the uploader.
func WithPartSize(size int64) Option {
	return func(o *options) {
		if size > 0 {
			o.partSize = size
		}
	}
}

// WithConcurrency sets the number of parts uploaded in parallel.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithLeavePartsOnError keeps uploaded parts when a multipart upload fails.
func WithLeavePartsOnError(leave bool) Option {
	return func(o *options) {
		o.leavePartsOnError = leave
	}
}
