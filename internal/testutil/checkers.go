// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2024 Canonical Ltd
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 3 as
 * published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package testutil

import (
	"errors"
	"reflect"

	. "gopkg.in/check.v1"
)

type isTrueChecker struct {
	*CheckerInfo
}

// IsTrue checks that the obtained value is the boolean true.
var IsTrue Checker = &isTrueChecker{
	&CheckerInfo{Name: "IsTrue", Params: []string{"value"}}}

func (checker *isTrueChecker) Check(params []interface{}, names []string) (result bool, errStr string) {
	value := reflect.ValueOf(params[0])
	if value.Kind() != reflect.Bool {
		return false, names[0] + " is not a bool"
	}
	return value.Bool(), ""
}

type isFalseChecker struct {
	*CheckerInfo
}

// IsFalse checks that the obtained value is the boolean false.
var IsFalse Checker = &isFalseChecker{
	&CheckerInfo{Name: "IsFalse", Params: []string{"value"}}}

func (checker *isFalseChecker) Check(params []interface{}, names []string) (result bool, errStr string) {
	value := reflect.ValueOf(params[0])
	if value.Kind() != reflect.Bool {
		return false, names[0] + " is not a bool"
	}
	return !value.Bool(), ""
}

type errorIsChecker struct {
	*CheckerInfo
}

// ErrorIs checks that the obtained error matches the expected error
// according to errors.Is.
var ErrorIs Checker = &errorIsChecker{
	&CheckerInfo{Name: "ErrorIs", Params: []string{"value", "expected"}}}

func (checker *errorIsChecker) Check(params []interface{}, names []string) (result bool, errStr string) {
	err, ok := params[0].(error)
	if !ok {
		return false, names[0] + " is not an error"
	}
	expected, ok := params[1].(error)
	if !ok {
		return false, names[1] + " is not an error"
	}
	return errors.Is(err, expected), ""
}

type convertibleToChecker struct {
	*CheckerInfo
}

// ConvertibleTo checks that the obtained error can be converted to the type
// of the sample according to errors.As.
var ConvertibleTo Checker = &convertibleToChecker{
	&CheckerInfo{Name: "ConvertibleTo", Params: []string{"value", "sample"}}}

func (checker *convertibleToChecker) Check(params []interface{}, names []string) (result bool, errStr string) {
	err, ok := params[0].(error)
	if !ok {
		return false, names[0] + " is not an error"
	}
	if params[1] == nil {
		return false, names[1] + " is nil"
	}
	target := reflect.New(reflect.TypeOf(params[1]))
	return errors.As(err, target.Interface()), ""
}
