// Package flow composes the leaf components into the application's two
// nontrivial screens: the SOS trigger and the live emergency map.
package flow
