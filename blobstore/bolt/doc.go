// Package bolt keeps cover tree snapshots in a single bbolt database file.
//
// It suits deployments that want one file on disk holding many named
// snapshots with transactional replacement:
//
//	store, err := bolt.Open("snapshots.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	err = tree.Save(ctx, store, "products.cvt")
package bolt
