// Package cache stores built plans so repeated requests for the same
// objective and settings skip expansion.
//
// Two backends implement Cache:
//
//	c := cache.NewMemory(10*time.Minute, 15*time.Minute) // single process
//	c, err := cache.NewFromURL("redis://localhost:6379/0", 10*time.Minute)
//
// Callers use Lookup and Store, which log backend failures and treat them
// as misses so a cache outage never fails a plan request.
package cache
