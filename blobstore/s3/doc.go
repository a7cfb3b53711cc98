// Package s3 stores cover tree snapshots in Amazon S3.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("snapshots/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	err = tree.Save(ctx, store, "products.cvt")
//	restored, err := covertree.Load(ctx, store, "products.cvt")
//
// Small snapshots are written with a single PutObject carrying a CRC32C
// checksum. Larger ones go through the multipart uploader.
package s3
