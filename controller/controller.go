/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tomoncle/restcore"
	"github.com/tomoncle/restcore/query"
)

// Controller serves one resource:
//
//	GET    /prefix      Index
//	GET    /prefix/:id  Show
//	POST   /prefix      Store
//	PUT    /prefix/:id  Update
//	DELETE /prefix/:id  Delete
type Controller[T any] struct {
	service *restcore.Service[T]
}

func NewController[T any](service *restcore.Service[T]) *Controller[T] {
	return &Controller[T]{service: service}
}

// Register mounts the routes under prefix.
func (c *Controller[T]) Register(router fiber.Router, prefix string) {
	router.Get(prefix, c.Index)
	router.Get(prefix+"/:id", c.Show)
	router.Post(prefix, c.Store)
	router.Put(prefix+"/:id", c.Update)
	router.Delete(prefix+"/:id", c.Delete)
}

// Index lists the resource. Query parameters are read in request order.
func (c *Controller[T]) Index(ctx *fiber.Ctx) error {
	params := query.ParamsFromArgs(ctx.Context().QueryArgs())
	result, err := c.service.Index(ctx.UserContext(), params)
	if err != nil {
		return err
	}
	return ctx.JSON(result)
}

func (c *Controller[T]) Show(ctx *fiber.Ctx) error {
	id, err := c.id(ctx)
	if err != nil {
		return err
	}
	entity, err := c.service.Show(ctx.UserContext(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(fiber.Map{"data": entity})
}

func (c *Controller[T]) Store(ctx *fiber.Ctx) error {
	entity := new(T)
	if err := ctx.BodyParser(entity); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	created, err := c.service.Store(ctx.UserContext(), entity)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{"data": created})
}

func (c *Controller[T]) Update(ctx *fiber.Ctx) error {
	id, err := c.id(ctx)
	if err != nil {
		return err
	}
	entity := new(T)
	if err := ctx.BodyParser(entity); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	updated, err := c.service.Update(ctx.UserContext(), id, entity)
	if err != nil {
		return err
	}
	return ctx.JSON(fiber.Map{"data": updated})
}

func (c *Controller[T]) Delete(ctx *fiber.Ctx) error {
	id, err := c.id(ctx)
	if err != nil {
		return err
	}
	deleted, err := c.service.Delete(ctx.UserContext(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(fiber.Map{"data": deleted})
}

func (c *Controller[T]) id(ctx *fiber.Ctx) (any, error) {
	id, err := c.service.ParseID(ctx.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return id, nil
}
