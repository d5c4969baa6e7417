// Package plugin contains the plugins shipped with the engine:
// duplicate suppression (seen), title fallback (metainfo_title), and
// explicit accept-all. The first two are built-ins and run for every
// feed without being referenced in the feed configuration;
// source-specific plugins build on the same registration and
// validation machinery.
package plugin
