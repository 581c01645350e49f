// Package testsupport provides configuration builders and fixture writers
// shared by package tests.
package testsupport
