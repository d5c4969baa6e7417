// Package feed implements the task execution engine: the event-ordered
// plugin dispatcher, the entry classification state machine, and the
// TTL-expiring module cache.
//
// A Feed represents one configured unit of work. Executing it walks a
// fixed sequence of lifecycle events; for each event the engine asks the
// plugin source for the registered plugins, orders them by effective
// priority, and invokes each against the feed's current entry set.
// Plugins classify entries (accept, filter, reject, fail) and the engine
// purges the live set between plugins and events according to those
// classifications. A plugin failure aborts the whole feed rather than
// being papered over, since a plugin that failed unexpectedly has left
// state in an unknown condition.
package feed
